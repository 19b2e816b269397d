package publisher

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/evanhutnik/routerisk-service/internal/observability"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	metrics *observability.Metrics
	logger  *zap.SugaredLogger
}

func NewNATSPublisher(url, subject string, m *observability.Metrics, logger *zap.SugaredLogger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("routerisk-service"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnw("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m, logger: logger}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// ReportMessage is the summary published for each evaluated route.
type ReportMessage struct {
	Origin          string              `json:"origin"`
	Destination     string              `json:"destination"`
	TotalDistanceKm float64             `json:"totalDistanceKm"`
	Overall         t.RiskLevel         `json:"overall"`
	Records         []t.RouteRiskRecord `json:"records"`
	FailedPoints    int                 `json:"failedPoints"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

func NewReportMessage(r *t.RouteRiskReport) ReportMessage {
	return ReportMessage{
		Origin:          r.Origin,
		Destination:     r.Destination,
		TotalDistanceKm: r.TotalDistanceKm,
		Overall:         r.Overall,
		Records:         r.Records,
		FailedPoints:    r.Diagnostics.FailedPoints,
		GeneratedAt:     r.GeneratedAt,
	}
}

// Subject returns "<base>.<overall risk>", e.g. routerisk.reports.high.
func Subject(base string, level t.RiskLevel) string {
	return base + "." + subjectToken(strings.ToLower(level.String()))
}

func (p *NATSPublisher) Publish(_ context.Context, r *t.RouteRiskReport) error {
	b, err := json.Marshal(NewReportMessage(r))
	if err != nil {
		return err
	}
	err = p.nc.Publish(Subject(p.subject, r.Overall), b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.ReportsPublished.WithLabelValues("error").Inc()
		} else {
			p.metrics.ReportsPublished.WithLabelValues("success").Inc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*' or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
