// Package autoload initialises the global logger from LOG_* environment variables on import.
package autoload

import (
	configx "github.com/tanpawarit/agent-teams/pkg/config"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
