// Package api serves cached WDC2 tables over a read-only HTTP API.
package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/db2kit/internal/logger"
	"github.com/samcharles93/db2kit/internal/tablestore"
	"github.com/samcharles93/db2kit/internal/version"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type Server struct {
	store   *tablestore.Store
	metrics http.Handler
	log     logger.Logger
}

// NewServer returns a server over store. gatherer backs /metrics and may be
// nil, in which case the endpoint is not registered.
func NewServer(store *tablestore.Store, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{store: store, log: log.With("component", "api")}
	if gatherer != nil {
		s.metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(requestID())

	e.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		e.GET("/metrics", s.handleMetrics)
	}

	e.GET("/v1/tables", s.handleListTables)
	e.GET("/v1/tables/:name", s.handleGetTable)
	e.GET("/v1/tables/:name/rows", s.handleListRows)
	e.GET("/v1/tables/:name/rows/:id", s.handleGetRow)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleListTables(c *echo.Context) error {
	files, err := s.store.List()
	if err != nil {
		s.log.Error("list tables", "error", err)
		return writeErr(c, err)
	}
	out := TableList{Object: "list", Data: make([]TableSummary, 0, len(files))}
	for _, f := range files {
		out.Data = append(out.Data, TableSummary{
			Name:       f.Name,
			Size:       f.Size,
			Compressed: f.Compressed,
			Loaded:     s.store.Cached(f.Name),
		})
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleGetTable(c *echo.Context) error {
	entry, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, tableDetail(entry))
}

func (s *Server) handleListRows(c *echo.Context) error {
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	limit, err := intQuery(c, "limit", defaultPageSize)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if limit == 0 || limit > maxPageSize {
		return writeBadRequest(c, "limit must be between 1 and 1000")
	}

	entry, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	rows, err := entry.Records(offset, limit)
	if err != nil {
		s.log.Warn("decode rows", "table", entry.Name, "offset", offset, "error", err)
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, RowsResponse{
		Object: "list",
		Table:  entry.Name,
		Offset: offset,
		Limit:  limit,
		Total:  entry.Table.Len(),
		Data:   rows,
	})
}

func (s *Server) handleGetRow(c *echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	entry, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	rec, err := entry.Record(id)
	if err != nil {
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, rec)
}
