// Package config 提供训练与服务配置的加载（支持 YAML/JSON）与校验。
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/rankit/core"
)

// Config 是引擎的整体配置。
type Config struct {
	Train TrainConfig `yaml:"train" json:"train"`
	Serve ServeConfig `yaml:"serve" json:"serve"`
}

// TrainConfig 是 ALS 训练参数。
type TrainConfig struct {
	// Rank 隐向量维度，必须为正
	Rank int `yaml:"rank" json:"rank"`

	// NumIterations 迭代轮数，必须为正
	NumIterations int `yaml:"num_iterations" json:"num_iterations"`

	// Lambda 正则化权重，非负
	Lambda float64 `yaml:"lambda" json:"lambda"`

	// Alpha 置信度缩放系数（0 时取默认 1.0）
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// Seed 随机种子；缺省时训练取时钟种子，结果不可复现
	Seed *int64 `yaml:"seed" json:"seed"`

	// MaxConcurrent 训练阶段内并发求解的最大行数，非负（0 表示无限制）
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// EvalThreshold 评估相关性阈值：交互权重严格大于该值才算相关
	EvalThreshold int `yaml:"eval_threshold" json:"eval_threshold"`
}

// ServeConfig 是在线排序参数。
type ServeConfig struct {
	// TopN 真实排序结果的截断长度（<= 0 不截断）
	TopN int `yaml:"top_n" json:"top_n"`

	// Blacklist 静态黑名单物品 ID
	Blacklist []string `yaml:"blacklist" json:"blacklist"`

	// ItemExpr 候选过滤的 CEL 表达式（为 true 保留候选），例如：
	//   item.attrs.in_stock == true
	ItemExpr string `yaml:"item_expr" json:"item_expr"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Train: TrainConfig{
			Rank:          10,
			NumIterations: 20,
			Lambda:        0.01,
		},
	}
}

// Validate 校验配置。非法的训练参数是致命配置错误（训练前即失败）。
func (c *Config) Validate() error {
	if c.Train.Rank <= 0 {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: train.rank must be positive, got %d", c.Train.Rank))
	}
	if c.Train.NumIterations <= 0 {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: train.num_iterations must be positive, got %d", c.Train.NumIterations))
	}
	if c.Train.Lambda < 0 {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: train.lambda must be non-negative, got %v", c.Train.Lambda))
	}
	if c.Train.MaxConcurrent < 0 {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("config: train.max_concurrent must be non-negative, got %d", c.Train.MaxConcurrent))
	}
	return nil
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return cfg, nil
}
