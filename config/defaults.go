// =============================================================================
// 📦 AgentGate 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Approval:   DefaultApprovalConfig(),
		Breakpoint: DefaultBreakpointConfig(),
		History:    DefaultHistoryConfig(),
		Feedback:   FeedbackConfig{Persist: false},
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Auth:       AuthConfig{JWTIssuer: "agentgate"},
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultApprovalConfig 返回默认审批配置
func DefaultApprovalConfig() ApprovalConfig {
	return ApprovalConfig{
		AutoApprove:        false,
		AutoApproveLowRisk: false,
		DefaultTimeout:     60 * time.Second,
		HistoryLimit:       100,
		RememberBackend:    "memory",
		RememberKeyPrefix:  "agentgate:remember:",
	}
}

// DefaultBreakpointConfig 返回默认断点配置
func DefaultBreakpointConfig() BreakpointConfig {
	return BreakpointConfig{
		PauseOnHit:      false,
		DefaultInterval: 5,
	}
}

// DefaultHistoryConfig 返回默认状态历史配置
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{MaxSize: 50}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "agentgate",
		Password:        "",
		Name:            "agentgate.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentgate",
		SampleRate:   0.1,
	}
}
