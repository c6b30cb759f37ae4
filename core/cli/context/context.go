package cliContext

type Context struct {
	Debug     bool    `env:"PIPERBOOK_DEBUG,DEBUG" default:"false" hidden:"" help:"Shorthand for --log-level=debug"`
	LogLevel  *string `env:"PIPERBOOK_LOG_LEVEL" enum:"error,warn,info,debug,trace" help:"Set the level of logs to output [${enum}]"`
	LogFormat *string `env:"PIPERBOOK_LOG_FORMAT" default:"default" enum:"default,text,json" help:"Set the format of logs to output [${enum}]"`
}
