package monitor

import (
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air/mqtt"
)

// Subscriber is the subscribing side of mqtt.Queue.
type Subscriber interface {
	Sub(filter string, handler mqtt.Handler) paho.Token
}

// ReportHandler receives decoded reports.
type ReportHandler func(node string, report Report)

// Watch subscribes to reports from node, all nodes if node is empty.
func Watch(s Subscriber, node string, h ReportHandler) paho.Token {
	if node == "" {
		node = "+"
	}
	return s.Sub(Topic(node, "+"), func(topic string, payload []byte) {
		tokens := strings.Split(topic, "/")
		if len(tokens) != 3 {
			return
		}
		report, err := Decode(payload)
		if err != nil {
			glog.Warningf("monitor: %s: %v", topic, err)
			return
		}
		h(tokens[1], report)
	})
}
