// Copyright 2026 The genomepath-htsget Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genomepath/htsget/internal/format"
	"github.com/genomepath/htsget/internal/ticket"
)

var (
	errInvalidID             = errors.New("missing resource id")
	errConflictingFormat     = errors.New("format query parameter and request body disagree")
	errMissingReferenceName  = errors.New("region is missing a referenceName")
)

// serviceInfo renders the GA4GH service-info document for one endpoint
// kind. All three endpoints are served by the same binary, so the only
// thing that varies is the advertised datatype and format list.
func (s *Server) serviceInfo(endpoint format.Endpoint) gin.HandlerFunc {
	datatype, formats := serviceInfoBody(endpoint)
	return func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{
			"htsget": gin.H{
				"datatype":                 datatype,
				"formats":                  formats,
				"fieldsParameterEffective": false,
				"tagsParametersEffective":  false,
				"htsget": gin.H{
					"version": "1.3.0",
				},
			},
		})
	}
}

func serviceInfoBody(endpoint format.Endpoint) (string, []string) {
	switch endpoint {
	case format.EndpointVariants:
		return "variants", []string{"VCF", "BCF"}
	case format.EndpointSequences:
		return "sequences", []string{"FASTA", "FASTQ"}
	default:
		return "reads", []string{"BAM", "CRAM"}
	}
}

// serveData proxies a signed /data/{token} URL issued by storage.Local's
// Materialize, the only backend whose materialized URLs point back at this
// server instead of a remote object store.
func (s *Server) serveData(c *gin.Context) {
	key, rng, err := s.Local.VerifyToken(c.Param("token"))
	if err != nil {
		writeError(c, ticket.NewInvalidAuthenticationError("verifying data token", err))
		return
	}

	begin, end := int64(0), int64(-1)
	if rng != nil {
		begin, end = rng.Begin, rng.End
	} else {
		length, err := s.Local.Length(c.Request.Context(), key)
		if err != nil {
			writeError(c, ticket.NewIoError("reading data file", err))
			return
		}
		end = length - 1
	}

	r, err := s.Local.ReadRange(c.Request.Context(), key, begin, end)
	if err != nil {
		writeError(c, ticket.NewIoError("reading data file", err))
		return
	}
	defer r.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, r)
}
