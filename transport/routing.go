package transport

import "strings"

// MatchRoutingKey reports whether a routing key matches a topic binding key.
// Words are separated by dots; "*" matches exactly one word and "#" matches
// zero or more words.
func MatchRoutingKey(bindingKey, routingKey string) bool {
	return matchWords(strings.Split(bindingKey, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, words []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == "#" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(words); i++ {
				if matchWords(rest, words[i:]) {
					return true
				}
			}
			return false
		}
		if len(words) == 0 {
			return false
		}
		if head != "*" && head != words[0] {
			return false
		}
		pattern, words = pattern[1:], words[1:]
	}
	return len(words) == 0
}

// Route returns the consumer topics a message published to exchange with
// routingKey is delivered to.
func Route(topology Topology, exchange, routingKey string) []string {
	var topics []string
	for _, b := range topology.Bindings() {
		if b.Exchange == exchange && MatchRoutingKey(b.BindingKey, routingKey) {
			topics = append(topics, b.Topic())
		}
	}
	return topics
}
