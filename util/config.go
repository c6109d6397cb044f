package util

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"io/ioutil"
	"reflect"
)

type ReaderConfig struct {
	Logger            zap.Config       `toml:"log"`
	BookKeeper        BookKeeperConfig `toml:"book_keeper"`
	General           GeneralConfig    `toml:"general"`
	EventSourceConfig EventSource      `toml:"event_source"`
	Storage           Storage          `toml:"storage"`
	loaded            bool
}

type GeneralConfig struct {
	Namespace    string `toml:"namespace"`
	SpanTopic    string `toml:"span_topic"`
	PrewarmAsync bool   `toml:"prewarm_async"`
}

type BookKeeperConfig struct {
	Type string `toml:"type"`
}

type NatsConfig struct {
	URL       string `toml:"url"`
	ClientID  string `toml:"client_id"`
	ClusterID string `toml:"cluster_id"`
	GroupID   string `toml:"group_id"`
}

type Storage struct {
	Type  string       `toml:"type"`
	MySQL mysql.Config `toml:"mysql"`
}

var loadedConfig ReaderConfig

func GetConfig() ReaderConfig {
	if !loadedConfig.loaded {
		panic("config data not loaded")
	}
	return loadedConfig
}

func LoadConfig(tomlData string) {
	loadedConfig = ReaderConfig{}
	_, err := toml.Decode(tomlData, &loadedConfig)
	if err != nil {
		panic(fmt.Errorf("error when parsing toml data: %v", err))
	}
	if reflect.DeepEqual(ReaderConfig{}, loadedConfig) {
		panic("empty config data")
	} else {
		loadedConfig.loaded = true
	}
}

func LoadConfigFromFile(fileName string) {
	tomlData, err := ioutil.ReadFile(fileName)
	if err != nil {
		panic(err)
	}
	LoadConfig(string(tomlData))
}
