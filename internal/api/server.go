// Package api serves the compare dashboard, its JSON API and the compare websocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/chart"
	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/form"
	"fund-strategy-lab/internal/observability"
	"fund-strategy-lab/internal/storage"
)

// Comparer produces compare records for a validated query.
type Comparer interface {
	Compare(ctx context.Context, q domain.CompareQuery) ([]domain.CompareRecord, error)
}

// Options configures a Server.
type Options struct {
	Conditions  storage.SavedConditionStore
	Comparer    Comparer
	FormConfig  form.Config
	ChartConfig chart.Config
	Logger      *zap.Logger
	Now         func() time.Time // defaults to time.Now
}

// Server holds the HTTP handlers and their shared state.
type Server struct {
	conditions storage.SavedConditionStore
	comparer   Comparer
	formCfg    form.Config
	chartCfg   chart.Config
	logger     *zap.Logger
	now        func() time.Time

	started   time.Time
	closing   chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	compares    int
	failures    int
	lastCompare time.Time
	wsOpen      int
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		conditions: opts.Conditions,
		comparer:   opts.Comparer,
		formCfg:    opts.FormConfig,
		chartCfg:   opts.ChartConfig,
		logger:     opts.Logger,
		now:        opts.Now,
		closing:    make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()
	return s
}

// Close ends open websocket sessions. HTTP requests are drained by http.Server.Shutdown.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), requestID(), s.accessLog())

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/compare") })
	r.GET("/compare", s.handleComparePage)
	r.POST("/compare", s.handleCompareSubmit)

	api := r.Group("/api")
	api.GET("/form", s.handleFormSchema)
	api.POST("/compare", s.handleCompare)
	api.GET("/charts/:file", s.handleChartSVG)

	r.GET("/ws/compare", s.handleCompareWS)

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	return r
}

// form builds the search form from the current saved conditions.
func (s *Server) form(ctx context.Context) (*form.Form, error) {
	conds, err := s.conditions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load saved conditions: %w", err)
	}
	return form.New(conds, s.now(), s.formCfg), nil
}

// CompareResponse is the result of one compare submission.
type CompareResponse struct {
	Query   domain.CompareQuery        `json:"query"`
	Records []domain.CompareRecord     `json:"records"`
	Folded  []domain.FoldedSeriesPoint `json:"folded"`
	Charts  chart.Dashboard            `json:"charts"`
}

// compare validates v and runs the comparison. Validation failures are form.ValidationErrors.
func (s *Server) compare(ctx context.Context, v form.Values) (*CompareResponse, error) {
	f, err := s.form(ctx)
	if err != nil {
		return nil, err
	}

	var resp *CompareResponse
	err = f.Submit(v, func(q domain.CompareQuery) error {
		records, err := s.comparer.Compare(ctx, q)
		if err != nil {
			return err
		}
		resp = &CompareResponse{
			Query:   q,
			Records: records,
			Folded:  chart.Fold(records),
			Charts:  chart.Render(records, s.chartCfg),
		}
		return nil
	})
	observability.RecordFormSubmission(failedFields(err))

	s.mu.Lock()
	if err != nil {
		s.failures++
	} else {
		s.compares++
		s.lastCompare = s.now()
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return resp, nil
}
