package app

import (
	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
)

// SiteFromConfig returns the header location settings.
func SiteFromConfig(cfg *config.Config) job.Site {
	out := cfg.App.Output
	return job.Site{Location: out.Location, State: out.State, Country: out.Country}
}

// RunParamsFromConfig builds the parameters of a retrieval run.
func RunParamsFromConfig(cfg *config.Config) job.Params {
	req, p := cfg.App.Request, cfg.App.Provider
	return job.Params{
		Geometry:   req.Geometry,
		Dataset:    req.Dataset,
		Years:      req.Years,
		Interval:   req.Interval,
		Attributes: p.Attributes,
		APIKey:     req.APIKey,
		Email:      req.Email,
		Mode:       p.Mode,
		GroupSize:  p.GroupSize,
		Site:       SiteFromConfig(cfg),
	}
}
