package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/store"
)

// Query parameter names accepted by ParseFilter.
const (
	ParamFileName            = "fileName"
	ParamMinAverageIndicator = "minAverageIndicatorValue"
	ParamMaxAverageIndicator = "maxAverageIndicatorValue"
	ParamMinAverageDuration  = "minAverageDuration"
	ParamMaxAverageDuration  = "maxAverageDuration"
)

// Filter selects file summaries. Each range is inclusive and needs both
// bounds or neither.
type Filter struct {
	FileName *string

	MinAverageIndicator *float64
	MaxAverageIndicator *float64

	MinAverageDuration *float64
	MaxAverageDuration *float64
}

// ParseFilter reads a Filter from URL query values. Empty values count as
// absent. A value that is not a number is an invalid filter.
func ParseFilter(values url.Values) (Filter, error) {
	var (
		f   Filter
		err error
	)

	if name := strings.TrimSpace(values.Get(ParamFileName)); name != "" {
		f.FileName = &name
	}

	bounds := []struct {
		param string
		dst   **float64
	}{
		{ParamMinAverageIndicator, &f.MinAverageIndicator},
		{ParamMaxAverageIndicator, &f.MaxAverageIndicator},
		{ParamMinAverageDuration, &f.MinAverageDuration},
		{ParamMaxAverageDuration, &f.MaxAverageDuration},
	}
	for _, b := range bounds {
		if *b.dst, err = parseBound(values, b.param); err != nil {
			return Filter{}, err
		}
	}

	return f, nil
}

func parseBound(values url.Values, param string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.NewInvalidFilter(param + " must be a number")
	}
	return &v, nil
}

// Validate checks the filter combination.
func (f Filter) Validate() error {
	if (f.MinAverageIndicator == nil) != (f.MaxAverageIndicator == nil) {
		return errors.NewInvalidFilter("both boundaries for range of average indicator value must be provided")
	}
	if (f.MinAverageDuration == nil) != (f.MaxAverageDuration == nil) {
		return errors.NewInvalidFilter("both boundaries for range of average duration must be provided")
	}
	if f.FileName == nil && f.MinAverageIndicator == nil && f.MinAverageDuration == nil {
		return errors.NewInvalidFilter("at least one query parameter must be provided")
	}
	return nil
}

func (f Filter) storeFilter() store.SummaryFilter {
	return store.SummaryFilter{
		FileID:              f.FileName,
		MinAverageIndicator: f.MinAverageIndicator,
		MaxAverageIndicator: f.MaxAverageIndicator,
		MinAverageDuration:  f.MinAverageDuration,
		MaxAverageDuration:  f.MaxAverageDuration,
	}
}
