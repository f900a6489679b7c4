package run

import (
	"bytes"
	"fmt"
	"os"
	"time"

	diskpkg "github.com/regenlabs/regen/internal/cache/disk"
	"github.com/regenlabs/regen/internal/cache/memory"
	s3pkg "github.com/regenlabs/regen/internal/cache/s3"
	configpkg "github.com/regenlabs/regen/internal/config"
	"github.com/regenlabs/regen/internal/origin"
	"github.com/regenlabs/regen/internal/queue/httpqueue"
	"github.com/regenlabs/regen/internal/refresh"
	serverpkg "github.com/regenlabs/regen/internal/server"
	"github.com/regenlabs/regen/internal/server/assetproxy"
	rulepkg "github.com/regenlabs/regen/internal/server/rule"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the regen server",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "file", "f", "",
		"configuration file path (e.g. /etc/regen.yml)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		return fmt.Errorf("configuration file path (-f or --file) needs to be specified")
	}

	// Parse the configuration file
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file at path %s: %w", configPath, err)
	}

	config, err := configpkg.Parse(bytes.NewReader(configBytes))
	if err != nil {
		return fmt.Errorf("failed to parse configuration file at path %s: %w", configPath, err)
	}

	if config.Upstream == "" {
		return fmt.Errorf("an upstream to render from needs to be specified")
	}

	sealer, err := refresh.NewSealer(config.Secret)
	if err != nil {
		return err
	}

	opts := []serverpkg.Option{
		serverpkg.WithLogger(zap.S()),
		serverpkg.WithSealer(sealer),
	}

	// The render path receives its HTTP capability explicitly
	renderer, err := origin.New(config.Upstream)
	if err != nil {
		return err
	}

	opts = append(opts, serverpkg.WithRenderHandler(renderer.Handle))

	if config.Cache != nil {
		switch {
		case config.Cache.Disk != nil:
			limitBytes, err := humanize.ParseBytes(config.Cache.Disk.Limit)
			if err != nil {
				return fmt.Errorf("failed to parse disk limit value %q: %w",
					config.Cache.Disk.Limit, err)
			}

			disk, err := diskpkg.New(config.Cache.Disk.Dir, limitBytes)
			if err != nil {
				return err
			}

			opts = append(opts, serverpkg.WithCache(disk))
		case config.Cache.S3 != nil:
			s3, err := s3pkg.NewFromConfig(cmd.Context(), &s3pkg.Config{
				Endpoint:        config.Cache.S3.Endpoint,
				Region:          config.Cache.S3.Region,
				Bucket:          config.Cache.S3.Bucket,
				AccessKeyID:     config.Cache.S3.AccessKeyID,
				AccessKeySecret: config.Cache.S3.AccessKeySecret,
			})
			if err != nil {
				return err
			}

			opts = append(opts, serverpkg.WithCache(s3))
		case config.Cache.Memory != nil:
			opts = append(opts, serverpkg.WithCache(memory.New()))
		}
	}

	if config.Queue != nil {
		if config.Queue.Endpoint != "" {
			opts = append(opts, serverpkg.WithQueue(httpqueue.New(config.Queue.Endpoint, sealer)))
		}

		opts = append(opts, serverpkg.WithWorkers(config.Queue.Workers))
	}

	if config.Assets != nil {
		assetProxy, err := assetproxy.New(config.Assets.Upstream, zap.S())
		if err != nil {
			return err
		}

		opts = append(opts, serverpkg.WithAssetProxy(assetProxy))
	}

	if len(config.Rules) != 0 {
		var rules rulepkg.Rules

		for _, configRule := range config.Rules {
			revalidateAfter, err := time.ParseDuration(configRule.Revalidate)
			if err != nil {
				return fmt.Errorf("failed to parse revalidation window %q: %w",
					configRule.Revalidate, err)
			}

			rule, err := rulepkg.New(configRule.Pattern, revalidateAfter, configRule.KeyExprs)
			if err != nil {
				return err
			}

			rules = append(rules, rule)
		}

		opts = append(opts, serverpkg.WithRules(rules))
	}

	server, err := serverpkg.New(config.Addr, opts...)
	if err != nil {
		return err
	}

	return server.Run(cmd.Context())
}
