package config

import "fmt"

type AppConfig struct {
	Server  ServerConfig
	Cluster ClusterConfig
	Log     LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	clusterCfg, err := LoadCluster()
	if err != nil {
		return AppConfig{}, err
	}
	if clusterCfg.BusDriver == BusDriverPostgres && serverCfg.PostgresDSN == "" {
		return AppConfig{}, fmt.Errorf("POSTGRES_DSN is required for bus driver %q", clusterCfg.BusDriver)
	}
	return AppConfig{
		Server:  serverCfg,
		Cluster: clusterCfg,
		Log:     logCfg,
	}, nil
}
