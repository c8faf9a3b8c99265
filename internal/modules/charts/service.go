// Package charts renders efficient frontier curves for visualization
// collaborators.
package charts

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	charts "github.com/vicanso/go-charts/v2"

	"github.com/aristath/frontier/internal/modules/results"
)

// Service renders run artifacts as PNG images.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new chart service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "charts").Logger(),
	}
}

// FrontierPNG renders the frontier curve, volatility on the X axis and
// expected return on the Y axis.
func (s *Service) FrontierPNG(title string, points []results.FrontierPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, errors.New("not enough frontier points to chart")
	}

	values := make([]float64, len(points))
	labels := make([]string, len(points))
	yMin, yMax := points[0].ExpectedReturn, points[0].ExpectedReturn
	for i, p := range points {
		values[i] = p.ExpectedReturn
		labels[i] = fmt.Sprintf("%.3f", p.Volatility)
		if p.ExpectedReturn < yMin {
			yMin = p.ExpectedReturn
		}
		if p.ExpectedReturn > yMax {
			yMax = p.ExpectedReturn
		}
	}

	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 0.001
	}
	yMin -= pad
	yMax += pad

	painter, err := charts.LineRender([][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render frontier chart: %w", err)
	}

	img, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontier chart: %w", err)
	}

	s.log.Debug().Int("points", len(points)).Msg("Rendered frontier chart")
	return img, nil
}
