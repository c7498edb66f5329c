package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docfusion/docfusion/docfusion"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

type bulkRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

type queryRequest struct {
	SQL     string `json:"sql"`
	Explain bool   `json:"explain"`
	NoCache bool   `json:"no_cache"`
}

type listResponse struct {
	Documents []docfusion.Document `json:"documents"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

type queryResponse struct {
	*docfusion.QueryResult
	ElapsedMS float64 `json:"elapsed_ms"`
}

func (s *Server) health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":  "ok",
		"backend": s.db.Backend(),
		"uptime":  s.uptime().String(),
	})
}

func (s *Server) appMetrics(c *gin.Context) {
	count, err := s.db.Count(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	out := gin.H{
		"documents":      count,
		"pool":           s.db.PoolStats(),
		"uptime_seconds": int64(s.uptime().Seconds()),
	}
	if stats, ok := s.db.CacheStats(); ok {
		out["cache"] = stats
	}
	respond(c, http.StatusOK, out)
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, http.StatusBadRequest, string(docfusion.ErrInvalidDocument), name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func idParam(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, string(docfusion.ErrInvalidDocument), "id must be an integer")
		return 0, false
	}
	return int32(id), true
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		fail(c, http.StatusRequestEntityTooLarge, string(docfusion.ErrIO), "request body too large")
		return nil, false
	}
	return body, true
}

func (s *Server) listDocuments(c *gin.Context) {
	limit, ok := intQuery(c, "limit", docfusion.DefaultListLimit)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}
	docs, err := s.db.List(c.Request.Context(), limit, offset)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, listResponse{
		Documents: docs,
		Limit:     docfusion.ClampListLimit(limit),
		Offset:    offset,
	})
}

func (s *Server) createDocument(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	doc, err := s.db.Insert(c.Request.Context(), body)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, doc)
}

func (s *Server) bulkCreateDocuments(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var req bulkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, string(docfusion.ErrInvalidDocument), "body must be {\"documents\": [...]}")
		return
	}
	docs := make([][]byte, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = d
	}
	res, err := s.db.BulkInsert(c.Request.Context(), docs)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

func (s *Server) getDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	doc, err := s.db.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, doc)
}

func (s *Server) deleteDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleted, err := s.db.Delete(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, string(docfusion.ErrNotFound), "document not found: id="+strconv.Itoa(int(id)))
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SQL == "" {
		fail(c, http.StatusBadRequest, string(docfusion.ErrQueryParse), "body must be {\"sql\": \"...\"}")
		return
	}
	res, err := s.db.Query(c.Request.Context(), req.SQL, docfusion.QueryOptions{
		Explain: req.Explain,
		NoCache: req.NoCache,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, queryResponse{
		QueryResult: res,
		ElapsedMS:   float64(res.Elapsed.Microseconds()) / 1000,
	})
}

func (s *Server) clearCache(c *gin.Context) {
	s.db.ClearCache()
	respond(c, http.StatusOK, gin.H{"cleared": true})
}
