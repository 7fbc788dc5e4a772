// Package app is the host-side handle on the embedded page application: the
// ports it exposes and the events it emits through them.
package app

import "github.com/vincentbai/pageview-bridge/internal/port"

const UpdateAnalyticsPort = "updateAnalytics"

type Ports struct {
	UpdateAnalytics *port.Port[string]
}

type App struct {
	Ports Ports
}

func Init() *App {
	return &App{
		Ports: Ports{
			UpdateAnalytics: port.New[string](UpdateAnalyticsPort),
		},
	}
}

// Navigate reports a route change. It returns false if nothing is listening.
func (a *App) Navigate(page string) bool {
	return a.Ports.UpdateAnalytics.Send(page)
}
