package config

// ScanConfig governs the Scheduler, Job Queue, and Orchestrator.
type ScanConfig struct {
	Enabled                 bool   `mapstructure:"enabled" json:"enabled"`
	Schedule                string `mapstructure:"schedule" json:"schedule"`
	RunOnStartup            bool   `mapstructure:"run_on_startup" json:"runOnStartup"`
	MaxRepositoriesPerNight int    `mapstructure:"max_repositories_per_night" json:"maxRepositoriesPerNight"`
	MaxConcurrentScans      int    `mapstructure:"max_concurrent_scans" json:"maxConcurrentScans"`
	ScanTimeoutSeconds      int    `mapstructure:"scan_timeout_seconds" json:"scanTimeout"`
	RetryAttempts           int    `mapstructure:"retry_attempts" json:"retryAttempts"`
	RetryDelayMs            int    `mapstructure:"retry_delay_ms" json:"retryDelayMs"`
}

// DatabaseConfig selects and configures the durable store backing the Scan
// Cache's SQL-backed index and the Orchestrator/Coordinator's artifact
// store. Driver is "sqlite" (default) or "mysql".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	Path   string `mapstructure:"path" json:"path,omitempty"`
	DSN    string `mapstructure:"dsn" json:"dsn,omitempty"`
}

// CacheConfig governs the Scan Cache.
type CacheConfig struct {
	Enabled                 bool   `mapstructure:"enabled" json:"enabled"`
	TTLSeconds              int64  `mapstructure:"ttl_seconds" json:"ttlSeconds"`
	InvalidateOnChange      bool   `mapstructure:"invalidate_on_change" json:"invalidateOnChange"`
	TrackGitCommits         bool   `mapstructure:"track_git_commits" json:"trackGitCommits"`
	TrackUncommittedChanges bool   `mapstructure:"track_uncommitted_changes" json:"trackUncommittedChanges"`
	RedisAddr               string `mapstructure:"redis_addr" json:"redisAddr,omitempty"`
}

// SimilarityConfig is the Similarity Engine's single immutable configuration
// value, built once per process.
type SimilarityConfig struct {
	StructuralThreshold      float64 `mapstructure:"structural_threshold" json:"structuralThreshold"`
	LevenshteinWeight        float64 `mapstructure:"levenshtein_weight" json:"levenshteinWeight"`
	ChainWeight              float64 `mapstructure:"chain_weight" json:"chainWeight"`
	OppositeLogicPenalty     float64 `mapstructure:"opposite_logic_penalty" json:"oppositeLogicPenalty"`
	HTTPStatusPenalty        float64 `mapstructure:"http_status_penalty" json:"httpStatusPenalty"`
	MinLineCount             int     `mapstructure:"min_line_count" json:"minLineCount"`
	MinUniqueTokens          int     `mapstructure:"min_unique_tokens" json:"minUniqueTokens"`
	MinGroupQuality          float64 `mapstructure:"min_group_quality" json:"minGroupQuality"`
	QualityWeightSimilarity  float64 `mapstructure:"quality_weight_similarity" json:"qualityWeightSimilarity"`
	QualityWeightSize        float64 `mapstructure:"quality_weight_size" json:"qualityWeightSize"`
	QualityWeightConsistency float64 `mapstructure:"quality_weight_consistency" json:"qualityWeightConsistency"`
	QualityWeightTagOverlap  float64 `mapstructure:"quality_weight_tag_overlap" json:"qualityWeightTagOverlap"`

	EnableSemanticOperators     bool `mapstructure:"enable_semantic_operators" json:"enableSemanticOperators"`
	EnableLogicalOperatorCheck  bool `mapstructure:"enable_logical_operator_check" json:"enableLogicalOperatorCheck"`
	EnableMethodChainValidation bool `mapstructure:"enable_method_chain_validation" json:"enableMethodChainValidation"`
	EnableSemanticLayer         bool `mapstructure:"enable_semantic_layer" json:"enableSemanticLayer"`
	EnableQualityFiltering      bool `mapstructure:"enable_quality_filtering" json:"enableQualityFiltering"`
}

// PatternGatewayConfig configures the external AST matcher subprocess.
type PatternGatewayConfig struct {
	MatcherPath        string `mapstructure:"matcher_path" json:"matcherPath"`
	RulesDir           string `mapstructure:"rules_dir" json:"rulesDir"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds" json:"timeoutSeconds"`
	MaxOutputBytes     int    `mapstructure:"max_output_bytes" json:"maxOutputBytes"`
	BreakerMaxFailures uint32 `mapstructure:"breaker_max_failures" json:"breakerMaxFailures"`
}

// NotifyChannelConfig carries per-channel delivery settings for duplicate-group
// and job events.
type NotifyChannelConfig struct {
	Slack       SlackConfig    `mapstructure:"slack" json:"slack"`
	Webhook     WebhookConfig  `mapstructure:"webhook" json:"webhook"`
	Telegram    TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Email       EmailConfig    `mapstructure:"email" json:"email"`
	MinSeverity string         `mapstructure:"min_severity" json:"minSeverity"`
	Events      []string       `mapstructure:"events" json:"events"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhookUrl"`
	Channel    string `mapstructure:"channel" json:"channel"`
}

type WebhookConfig struct {
	URL           string `mapstructure:"url" json:"url"`
	SigningSecret string `mapstructure:"signing_secret" json:"signingSecret,omitempty"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"botToken"`
	ChatID   string `mapstructure:"chat_id" json:"chatId"`
}

type EmailConfig struct {
	SMTPHost string   `mapstructure:"smtp_host" json:"smtpHost"`
	SMTPPort int      `mapstructure:"smtp_port" json:"smtpPort"`
	From     string   `mapstructure:"from" json:"from"`
	To       []string `mapstructure:"to" json:"to"`
	Username string   `mapstructure:"username" json:"username"`
	Password string   `mapstructure:"password" json:"password"`
	UseTLS   bool     `mapstructure:"use_tls" json:"useTls"`
}

// GitHubConfig authenticates against github.com or a GitHub Enterprise host.
type GitHubConfig struct {
	Host  string `mapstructure:"host" json:"host,omitempty"`
	Token string `mapstructure:"token" json:"token"`
}

// GitLabConfig authenticates against gitlab.com or a self-hosted instance.
type GitLabConfig struct {
	Host  string `mapstructure:"host" json:"host,omitempty"`
	Token string `mapstructure:"token" json:"token"`
}

// AzureConfig authenticates against an Azure DevOps organisation.
type AzureConfig struct {
	Org   string `mapstructure:"org" json:"org"`
	Host  string `mapstructure:"host" json:"host,omitempty"`
	Token string `mapstructure:"token" json:"token"`
}

// GitConfig holds credentials for the hosted Git providers the Repository
// Configuration Registry can resolve a clone URL against when a repository
// is added by owner/name instead of by local path.
type GitConfig struct {
	GitHub []GitHubConfig `mapstructure:"github" json:"github,omitempty"`
	GitLab []GitLabConfig `mapstructure:"gitlab" json:"gitlab,omitempty"`
	Azure  []AzureConfig  `mapstructure:"azure" json:"azure,omitempty"`
}

// Config is the top-level process configuration, loaded once at startup.
type Config struct {
	RegistryPath   string               `mapstructure:"registry_path" json:"registryPath"`
	DatabasePath   string               `mapstructure:"database_path" json:"databasePath"`
	Database       DatabaseConfig       `mapstructure:"database" json:"databaseConfig"`
	Scan           ScanConfig           `mapstructure:"scan" json:"scanConfig"`
	Cache          CacheConfig          `mapstructure:"cache" json:"cacheConfig"`
	Similarity     SimilarityConfig     `mapstructure:"similarity" json:"similarityConfig"`
	PatternGateway PatternGatewayConfig `mapstructure:"pattern_gateway" json:"patternGateway"`
	Notify         NotifyChannelConfig  `mapstructure:"notify" json:"notify"`
	Git            GitConfig            `mapstructure:"git" json:"git"`
}
