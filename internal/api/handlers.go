package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/chart"
	"fund-strategy-lab/internal/form"
	"fund-strategy-lab/internal/layout"
	"fund-strategy-lab/internal/observability"
)

// errorBody maps a compare error to its HTTP status and JSON body.
func errorBody(err error) (int, gin.H) {
	var verrs form.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verrs}
	}
	return http.StatusInternalServerError, gin.H{"error": "compare failed"}
}

func failedFields(err error) []string {
	var verrs form.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Fields()
	}
	return nil
}

func (s *Server) logFailure(c *gin.Context, msg string, err error) {
	if len(failedFields(err)) > 0 {
		return
	}
	s.logger.Error(msg, zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
}

// handleFormSchema returns options, defaults and presets of the search form.
func (s *Server) handleFormSchema(c *gin.Context) {
	f, err := s.form(c.Request.Context())
	if err != nil {
		s.logFailure(c, "build form", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load saved conditions"})
		return
	}
	c.JSON(http.StatusOK, f.Schema())
}

// handleCompare runs a JSON compare submission.
func (s *Server) handleCompare(c *gin.Context) {
	var v form.Values
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := s.compare(c.Request.Context(), v)
	if err != nil {
		s.logFailure(c, "compare", err)
		c.JSON(errorBody(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleChartSVG renders one chart of the query given in the URL.
func (s *Server) handleChartSVG(c *gin.Context) {
	id, ok := strings.CutSuffix(c.Param("file"), ".svg")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart"})
		return
	}
	if !slices.Contains(chart.IDs, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart"})
		return
	}

	resp, err := s.compare(c.Request.Context(), form.ValuesFromURL(c.Request.URL.Query()))
	if err != nil {
		s.logFailure(c, "compare", err)
		c.JSON(errorBody(err))
		return
	}

	ch, _ := resp.Charts.ByID(id)
	c.Data(http.StatusOK, "image/svg+xml", []byte(s.svg(ch)))
}

// handleComparePage renders the dashboard with the default form.
// start and end query parameters preselect a date range.
func (s *Server) handleComparePage(c *gin.Context) {
	f, err := s.form(c.Request.Context())
	if err != nil {
		s.logFailure(c, "build form", err)
		c.String(http.StatusInternalServerError, "failed to load saved conditions")
		return
	}

	d := layout.NewDashboard(f, nil)
	if start, end := c.Query(form.KeyStart), c.Query(form.KeyEnd); start != "" && end != "" {
		d.Start, d.End = start, end
	}
	s.writePage(c, http.StatusOK, d)
}

// handleCompareSubmit handles the HTML form post and renders charts or field errors.
func (s *Server) handleCompareSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := s.form(ctx)
	if err != nil {
		s.logFailure(c, "build form", err)
		c.String(http.StatusInternalServerError, "failed to load saved conditions")
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "malformed form")
		return
	}

	v := form.ValuesFromURL(c.Request.PostForm)
	d := layout.NewDashboard(f, &v)

	resp, err := s.compare(ctx, v)
	if err != nil {
		var verrs form.ValidationErrors
		if !errors.As(err, &verrs) {
			s.logFailure(c, "compare", err)
			d.Message = "Comparison failed, please try again."
			s.writePage(c, http.StatusInternalServerError, d)
			return
		}
		d.Errors = verrs
		s.writePage(c, http.StatusBadRequest, d)
		return
	}

	for _, ch := range resp.Charts.Charts() {
		d.Charts = append(d.Charts, layout.ChartView{
			ID:     ch.ID,
			SVG:    template.HTML(s.svg(ch)),
			Legend: ch.Legend,
		})
	}
	s.writePage(c, http.StatusOK, d)
}

func (s *Server) writePage(c *gin.Context, status int, d layout.Dashboard) {
	var buf bytes.Buffer
	if err := layout.WriteDashboard(&buf, d); err != nil {
		s.logFailure(c, "render page", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// svg renders ch, falling back to an empty canvas on failure.
func (s *Server) svg(ch chart.Chart) string {
	var buf bytes.Buffer
	err := chart.RenderSVG(&buf, ch)
	if err == nil {
		return buf.String()
	}

	observability.RecordChartRenderError(ch.ID)
	s.logger.Warn("chart render failed, drawing empty canvas", zap.String("chart", ch.ID), zap.Error(err))

	buf.Reset()
	if err := chart.RenderSVG(&buf, chart.Chart{ID: ch.ID, Title: ch.Title, Common: ch.Common}); err != nil {
		return ""
	}
	return buf.String()
}
