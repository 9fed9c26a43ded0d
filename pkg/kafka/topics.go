package kafka

import "fmt"

// TopicPrefix namespaces every topic this repository publishes to.
const TopicPrefix = "catalog"

// Topic builds a fully qualified topic name from an entity and an action,
// e.g. Topic("product", "created") returns "catalog.product.created".
func Topic(entity, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, entity, action)
}
