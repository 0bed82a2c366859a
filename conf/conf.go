// Package conf holds the relay's bootstrap configuration: the flat
// shape produced by flag parsing and optionally overlaid by a YAML
// config file.
package conf

import "time"

type Bootstrap struct {
	Bind    string   `json:"bind" yaml:"bind"`
	Skip    int      `json:"skip" yaml:"skip"`
	Mirrors []string `json:"mirrors" yaml:"mirrors"`
	PidFile string   `json:"pidfile" yaml:"pidfile"`
	Logger  *Logger  `json:"logger" yaml:"logger"`
	Server  *Server  `json:"server" yaml:"server"`
}

type Logger struct {
	Level      string `json:"level" yaml:"level"`
	Path       string `json:"path" yaml:"path"`
	Caller     bool   `json:"caller" yaml:"caller"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

type Server struct {
	ReadTimeout       time.Duration    `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration    `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration    `json:"idle_timeout" yaml:"idle_timeout"`
	ReadHeaderTimeout time.Duration    `json:"read_header_timeout" yaml:"read_header_timeout"`
	MaxHeaderBytes    int              `json:"max_header_bytes" yaml:"max_header_bytes"`
	PProf             *ServerPProf     `json:"pprof" yaml:"pprof"`
	AccessLog         *ServerAccessLog `json:"access_log" yaml:"access_log"`
}

type ServerPProf struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

type ServerAccessLog struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}
