package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
	"github.com/stefanprodan/kswitch-sub001/pkg/config"
	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

// loadConfig resolves the configuration path, writes the default file on
// first use, and loads the active configuration. A file that cannot be read
// falls back to defaults; a file that fails validation is an error.
func loadConfig(ra *RootArgs) (*configs.Config, string, error) {
	cfg := configs.New()
	configPath := resolveConfigPath(ra)

	err := configs.WriteDefault(configPath, false)
	if err != nil {
		slog.Error("write default config", slog.Any("err", err))
	}

	cl, err := config.NewLoaderFromFile(configPath, configs.New, configs.DefaultValidator)
	if err != nil {
		slog.Warn("could not read config, using defaults", slog.Any("err", err))

		return cfg, configPath, nil
	}

	err = cl.Validate()
	if err != nil {
		return nil, "", fmt.Errorf("invalid config %q: %w", configPath, err)
	}

	cfg, err = cl.Load()
	if err != nil {
		return nil, "", fmt.Errorf("invalid config %q: %w", configPath, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, "", fmt.Errorf("invalid config %q: %w", configPath, err)
	}

	return cfg, configPath, nil
}

// newKubeClient creates the kubectl client described by the configuration.
func newKubeClient(cfg *configs.Config) *kube.Client {
	opts := []kube.ClientOpt{
		kube.WithKubeconfigs(cfg.Kube.Kubeconfigs...),
		kube.WithCallTimeout(*cfg.Kube.CallTimeout),
	}
	if cfg.Kube.KubectlPath != "" {
		opts = append(opts, kube.WithKubectlPath(cfg.Kube.KubectlPath))
	}

	return kube.NewClient(opts...)
}

// newFleet assembles the fleet orchestrator from the configuration.
func newFleet(cfg *configs.Config, extra ...fleet.FleetOpt) *fleet.Fleet {
	opts := []fleet.FleetOpt{
		fleet.WithRefreshInterval(*cfg.Fleet.RefreshInterval),
		fleet.WithKubeconfigWatch(cfg.Kube.Kubeconfigs...),
	}

	if cfg.Fleet.Include != nil {
		opts = append(opts, fleet.WithIncludeRule(cfg.Fleet.Include))
	}

	if cfg.Fleet.Notifications != nil && !*cfg.Fleet.Notifications.Enabled {
		opts = append(opts, fleet.WithNotifier(fleet.NopNotifier{}))
	} else if cfg.Fleet.Notifications != nil && len(cfg.Fleet.Notifications.Rules) > 0 {
		opts = append(opts, fleet.WithNotifyRules(cfg.Fleet.Notifications.Rules...))
	}

	opts = append(opts, extra...)

	return fleet.NewFleet(newKubeClient(cfg), opts...)
}

// newTaskSystem creates the task catalog and executor from the
// configuration. The executor's process template carries the configured
// task environment on top of the caller's.
func newTaskSystem(cfg *configs.Config) (*task.Catalog, *task.Executor, error) {
	catalog := task.NewCatalog(cfg.Tasks.Dir,
		task.WithSuffix(cfg.Tasks.Suffix),
		task.WithPollInterval(*cfg.Tasks.PollInterval),
	)

	cmd, err := cfg.Tasks.BaseCommand(os.Environ())
	if err != nil {
		return nil, nil, fmt.Errorf("task environment: %w", err)
	}

	executor := task.NewExecutor(
		task.WithCommand(cmd),
		task.WithTimeout(*cfg.Tasks.Timeout),
	)

	return catalog, executor, nil
}
