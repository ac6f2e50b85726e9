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

// Package httpapi wires the htsget HTTP surface onto gin, the same router
// the teacher's multisource server builds its reads/block handlers on top
// of. It owns request parsing and response encoding only; all planning
// logic lives in internal/planner.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/genomepath/htsget/internal/format"
	"github.com/genomepath/htsget/internal/genomics"
	"github.com/genomepath/htsget/internal/planner"
	"github.com/genomepath/htsget/internal/storage"
	"github.com/genomepath/htsget/internal/telemetry"
	"github.com/genomepath/htsget/internal/ticket"
)

// Server holds everything the HTTP layer needs to serve requests: the
// planner for the single configured storage backend, and the local backend
// instance for the data-proxy route, if storage=local.
type Server struct {
	Planner *planner.Planner
	Local   *storage.Local // nil unless storage=local
	CORS    string
}

// postBody is the GA4GH POST request schema; unrecognized keys are ignored
// per spec.md §6.
type postBody struct {
	Format  *string      `json:"format"`
	Regions []postRegion `json:"regions"`
}

type postRegion struct {
	ReferenceName string  `json:"referenceName"`
	Start         *uint64 `json:"start"`
	End           *uint64 `json:"end"`
}

// Register attaches every htsget route to router.
func (s *Server) Register(router *gin.Engine) {
	if s.CORS != "" {
		router.Use(s.corsMiddleware())
	}
	router.Use(telemetry.Middleware())

	router.GET("/reads/:id", s.handle(format.EndpointReads))
	router.POST("/reads/:id", s.handle(format.EndpointReads))
	router.GET("/variants/:id", s.handle(format.EndpointVariants))
	router.POST("/variants/:id", s.handle(format.EndpointVariants))
	router.GET("/sequences/:id", s.handle(format.EndpointSequences))

	router.GET("/service-info", s.serviceInfo(format.EndpointReads))
	router.GET("/reads/service-info", s.serviceInfo(format.EndpointReads))
	router.GET("/variants/service-info", s.serviceInfo(format.EndpointVariants))
	router.GET("/sequences/service-info", s.serviceInfo(format.EndpointSequences))

	if s.Local != nil {
		router.GET("/data/:token", s.serveData)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", s.CORS)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handle(endpoint format.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := s.parseRequest(c, endpoint)
		if err != nil {
			writeError(c, err)
			return
		}

		envelope, err := s.Planner.Plan(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		telemetry.ObserveTicketSize(len(envelope.HTSGet.URLs))
		writeJSON(c, http.StatusOK, envelope)
	}
}

func (s *Server) parseRequest(c *gin.Context, endpoint format.Endpoint) (planner.Request, error) {
	id := c.Param("id")
	if id == "" {
		return planner.Request{}, ticket.NewInvalidInputError("parsing request", errInvalidID)
	}

	class, err := genomics.ParseClass(c.Query("class"))
	if err != nil {
		return planner.Request{}, ticket.NewInvalidInputError("parsing class", err)
	}

	queryFormat := strings.TrimSpace(c.Query("format"))

	var body postBody
	if c.Request.Method == http.MethodPost {
		if c.Request.ContentLength != 0 {
			if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
				return planner.Request{}, ticket.NewInvalidInputError("parsing request body", err)
			}
		}
	}

	bodyFormat := ""
	if body.Format != nil {
		bodyFormat = strings.TrimSpace(*body.Format)
	}
	if queryFormat != "" && bodyFormat != "" && !strings.EqualFold(queryFormat, bodyFormat) {
		return planner.Request{}, ticket.NewInvalidInputError("parsing format",
			errConflictingFormat)
	}
	chosen := queryFormat
	if chosen == "" {
		chosen = bodyFormat
	}

	var requestedFormat *format.Name
	if chosen != "" {
		name := format.Name(strings.ToUpper(chosen))
		requestedFormat = &name
	}

	regions, err := s.parseRegions(c, body)
	if err != nil {
		return planner.Request{}, err
	}

	return planner.Request{
		Endpoint: endpoint,
		Resource: id,
		Format:   requestedFormat,
		Regions:  regions,
		Class:    class,
	}, nil
}

func (s *Server) parseRegions(c *gin.Context, body postBody) ([]genomics.Region, error) {
	var regions []genomics.Region

	if name := c.Query("referenceName"); name != "" {
		region, err := parseQueryRegion(name, c.Query("start"), c.Query("end"))
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	for _, r := range body.Regions {
		if r.ReferenceName == "" {
			return nil, ticket.NewInvalidInputError("parsing regions", errMissingReferenceName)
		}
		regions = append(regions, genomics.Region{ReferenceName: r.ReferenceName, Start: r.Start, End: r.End})
	}

	for _, r := range regions {
		if err := r.Validate(); err != nil {
			return nil, ticket.NewInvalidInputError("validating region", err)
		}
	}
	return regions, nil
}

func parseQueryRegion(name, startStr, endStr string) (genomics.Region, error) {
	region := genomics.Region{ReferenceName: name}
	if startStr != "" {
		start, err := strconv.ParseUint(startStr, 10, 64)
		if err != nil {
			return genomics.Region{}, ticket.NewInvalidInputError("parsing start", err)
		}
		region.Start = &start
	}
	if endStr != "" {
		end, err := strconv.ParseUint(endStr, 10, 64)
		if err != nil {
			return genomics.Region{}, ticket.NewInvalidInputError("parsing end", err)
		}
		region.End = &end
	}
	return region, nil
}

func writeJSON(c *gin.Context, status int, body interface{}) {
	c.Header("Content-Type", "application/vnd.ga4gh.htsget.v1.3.0+json; charset=utf-8")
	enc := json.NewEncoder(c.Writer)
	enc.SetEscapeHTML(false)
	c.Status(status)
	enc.Encode(body)
}

func writeError(c *gin.Context, err error) {
	status, body := ticket.AsResponse(err)
	c.AbortWithStatusJSON(status, body)
}
