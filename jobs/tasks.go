package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries fallback reviews ahead of routine work.
	QueueCritical = "critical"
)
