package cmd

import (
	"context"

	"vmanager/internal/cli/ui"
)

// RunDashboard opens a proxy session and hands the terminal to the dashboard.
func RunDashboard(ctx context.Context) error {
	presenter := ui.NewPresenter()

	s, err := openSession(ctx, presenter)
	if err != nil {
		return err
	}
	defer s.Close()

	return ui.Run(ctx, s.host, presenter, UserName, ProxyURL)
}
