package rabbitmq

// RoutingKeyCourseCompleted — ключ события «курс завершён».
const RoutingKeyCourseCompleted = "course.completed"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ProgressQueues — очереди, на которые подписаны потребители событий прогресса
// (например, выдача сертификатов).
func ProgressQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "progress.course_completed", RoutingKey: RoutingKeyCourseCompleted},
	}
}
