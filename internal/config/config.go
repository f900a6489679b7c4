package config

import (
	"io"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string  `yaml:"addr"`
	Upstream string  `yaml:"upstream"`
	Secret   string  `yaml:"secret"`
	Cache    *Cache  `yaml:"cache"`
	Queue    *Queue  `yaml:"queue"`
	Assets   *Assets `yaml:"assets"`
	Rules    []Rule  `yaml:"rules"`
}

type Cache struct {
	Memory *Memory `yaml:"memory"`
	Disk   *Disk   `yaml:"disk"`
	S3     *S3     `yaml:"s3"`
}

type Memory struct{}

type Disk struct {
	Dir   string `yaml:"dir"`
	Limit string `yaml:"limit"`
}

type S3 struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
}

type Queue struct {
	Workers  int    `yaml:"workers"`
	Endpoint string `yaml:"endpoint"`
}

type Assets struct {
	Upstream string `yaml:"upstream"`
}

type Rule struct {
	Pattern    string   `yaml:"pattern"`
	Revalidate string   `yaml:"revalidate"`
	KeyExprs   []string `yaml:"key-exprs"`
}

func Parse(r io.Reader) (*Config, error) {
	var config Config

	if err := yaml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
