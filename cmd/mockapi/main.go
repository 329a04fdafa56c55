package main

import (
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-portal/mockapi/app"
	"github.com/Astemirdum/library-portal/mockapi/config"
)

func main() {
	var (
		debug        bool
		writeTimeout time.Duration
	)
	root := &cobra.Command{
		Use:           "mockapi",
		Short:         "Self-contained library backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return err
			}
			ops := []config.Option{config.WithWriteTimeout(writeTimeout)}
			if debug {
				ops = append(ops, config.WithLogLevel(zapcore.DebugLevel))
			}
			return app.Run(config.NewConfig(ops...))
		},
	}
	root.Flags().BoolVar(&debug, "debug", false, "log at debug level")
	root.Flags().DurationVar(&writeTimeout, "write-timeout", time.Minute, "HTTP write timeout")

	if err := root.Execute(); err != nil {
		stdLog.Fatal("mockapi ", err)
	}
}
