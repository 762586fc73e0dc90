package server

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component wraps Server for the lifecycle registry. Register it last so it
// stops first.
type Component struct {
	server *Server
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string                    { return componentName }
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }
func (c *Component) Stop(ctx context.Context) error  { return c.server.Stop(ctx) }

func (c *Component) Health(_ context.Context) component.Health {
	if c.server.listener == nil {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Type:    "gin",
		Details: fmt.Sprintf("%s, %d routes", c.server.httpServer.Addr, len(c.server.engine.Routes())),
	}
}
