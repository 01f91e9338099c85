package config

const (
	defaultDataDir                   = "~/.local/share/minute"
	defaultLogDir                    = "~/.local/share/minute/logs"
	defaultAPIBind                   = "127.0.0.1:7430"
	defaultRecallBaseURL             = "https://us-east-1.recall.ai/api/v1"
	defaultRecallTimeoutSeconds      = 30
	defaultChangeAgentBaseURL        = "https://api.changeagent.dev"
	defaultChangeAgentTimeoutSeconds = 60
	defaultAuthTokenExpiryMinutes    = 30
	defaultNotifyRequestTimeout      = 10
	defaultNotifyMinMeetingSeconds   = 60
	defaultNotifyDedupWindowSeconds  = 600
	defaultWorkflowWorkers           = 2
	defaultWorkflowQueuePollInterval = 5
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultWorkflowMaxAttempts       = 3
	defaultWorkflowSchedulerInterval = 30
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Recall: Recall{
			BaseURL:        defaultRecallBaseURL,
			TimeoutSeconds: defaultRecallTimeoutSeconds,
		},
		ChangeAgent: ChangeAgent{
			BaseURL:        defaultChangeAgentBaseURL,
			TimeoutSeconds: defaultChangeAgentTimeoutSeconds,
		},
		Auth: Auth{
			TokenExpiryMinutes: defaultAuthTokenExpiryMinutes,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			MeetingStarted:     true,
			MeetingCompleted:   true,
			SummaryReady:       true,
			Errors:             true,
			MinMeetingSeconds:  defaultNotifyMinMeetingSeconds,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Workflow: Workflow{
			Workers:           defaultWorkflowWorkers,
			QueuePollInterval: defaultWorkflowQueuePollInterval,
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
			MaxAttempts:       defaultWorkflowMaxAttempts,
			SchedulerInterval: defaultWorkflowSchedulerInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
