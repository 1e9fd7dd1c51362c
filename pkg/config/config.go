package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
// 敏感信息（主密钥、助记词、Badger 加密密钥）只从环境变量加载，
// 配置文件不保存任何密钥材料。
type Config struct {
	ListenAddr string // HTTP 监听地址

	MasterSecret []byte // 钱包加密主密钥（POLYTERM_MASTER_SECRET）
	Mnemonic     string // HD 钱包助记词（可选，POLYTERM_MNEMONIC，为空则使用随机密钥）

	ClobHost string // CLOB 交易所地址
	ChainID  int64  // 链 ID（137 主网 / 80002 测试网）
	RPCURL   string // Polygon RPC 节点地址

	FeeWallet string // 平台手续费钱包地址（为空则关闭手续费收取）
	FeeRate   string // 手续费率（小数字符串，例如 "0.025"，为空使用默认）

	DBPath        string // SQLite 数据库文件路径
	CredStorePath string // Badger 凭证库目录
	CredStoreKey  []byte // Badger 加密密钥（可选，POLYTERM_CREDSTORE_KEY，32 字节 hex）

	LogLevel string // 日志级别
	LogFile  string // 日志文件路径（可选）
}

// configFile 配置文件结构（YAML）
type configFile struct {
	Listen   string `yaml:"listen"`
	ClobHost string `yaml:"clob_host"`
	ChainID  int64  `yaml:"chain_id"`
	RPCURL   string `yaml:"rpc_url"`
	Fee      struct {
		Wallet string `yaml:"wallet"`
		Rate   string `yaml:"rate"`
	} `yaml:"fee"`
	DBPath        string `yaml:"db_path"`
	CredStorePath string `yaml:"credstore_path"`
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load(filePath string) (*Config, error) {
	cf := &configFile{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cf); err != nil {
			return nil, fmt.Errorf("解析配置文件失败 %s: %w", filePath, err)
		}
	}

	cfg := &Config{
		ListenAddr:    getEnvOr("POLYTERM_LISTEN", cf.Listen, ":8080"),
		Mnemonic:      strings.TrimSpace(os.Getenv("POLYTERM_MNEMONIC")),
		ClobHost:      getEnvOr("POLYTERM_CLOB_HOST", cf.ClobHost, "https://clob.polymarket.com"),
		ChainID:       getInt64Env("POLYTERM_CHAIN_ID", cf.ChainID, 137),
		RPCURL:        getEnvOr("POLYTERM_RPC_URL", cf.RPCURL, "https://polygon-rpc.com"),
		FeeWallet:     getEnvOr("POLYTERM_FEE_WALLET", cf.Fee.Wallet, ""),
		FeeRate:       getEnvOr("POLYTERM_FEE_RATE", cf.Fee.Rate, ""),
		DBPath:        getEnvOr("POLYTERM_DB", cf.DBPath, "data/polyterm.db"),
		CredStorePath: getEnvOr("POLYTERM_CREDSTORE", cf.CredStorePath, "data/credstore"),
		LogLevel:      getEnvOr("POLYTERM_LOG_LEVEL", cf.LogLevel, "info"),
		LogFile:       getEnvOr("POLYTERM_LOG_FILE", cf.LogFile, ""),
	}

	// 主密钥只从环境变量加载
	if v := strings.TrimSpace(os.Getenv("POLYTERM_MASTER_SECRET")); v != "" {
		cfg.MasterSecret = []byte(v)
	}

	if v := strings.TrimSpace(os.Getenv("POLYTERM_CREDSTORE_KEY")); v != "" {
		key, err := parseHexKey(v)
		if err != nil {
			return nil, fmt.Errorf("解析 POLYTERM_CREDSTORE_KEY 失败: %w", err)
		}
		cfg.CredStoreKey = key
	}

	return cfg, nil
}

// getEnvOr 环境变量 > 配置文件值 > 默认值
func getEnvOr(envKey, fileVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if strings.TrimSpace(fileVal) != "" {
		return strings.TrimSpace(fileVal)
	}
	return def
}

func getInt64Env(envKey string, fileVal, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return def
}

// parseHexKey 解析 32 字节 hex 密钥（可带 0x 前缀）
func parseHexKey(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("密钥长度必须是 32 字节, got %d", len(b))
	}
	return b, nil
}
