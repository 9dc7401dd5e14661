// Package autoload initializes the global zerolog logger from the
// environment as an import side effect.
package autoload

import (
	configx "github.com/merchkit/procurement-agent/pkg/config"
	logx "github.com/merchkit/procurement-agent/pkg/logger"
)

func init() {
	cfg, err := configx.Load[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
