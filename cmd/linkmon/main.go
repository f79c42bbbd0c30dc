package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/omnilink/pkg/air/mqtt"
	"github.com/robotalks/omnilink/pkg/monitor"
	"github.com/robotalks/omnilink/pkg/wire"
)

var (
	mqttURL  = "mqtt://localhost:1883/omni/"
	nodeName string
	airOnly  bool
)

func init() {
	if val := os.Getenv("OMNI_MONITOR_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&nodeName, "node", nodeName, "Only reports from this node.")
	flag.BoolVar(&airOnly, "air", airOnly, "Only air datagrams, no reports.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	q.Sub("+/+/+", mqtt.Handler(func(topic string, payload []byte) {
		ch, dst, src, err := mqtt.ParseDatagramTopic(topic)
		if err != nil {
			return
		}
		f, err := wire.FrameFrom(payload)
		if err != nil {
			log.Printf("ch%d %s -> %s: bad datagram (%d bytes)", ch, src, dst, len(payload))
			return
		}
		log.Printf("ch%d %s -> %s: %s", ch, src, dst, wire.Describe(&f))
	}))
	if !airOnly {
		monitor.Watch(q, nodeName, func(node string, r monitor.Report) {
			log.Printf("%s: [%s] %s", node, r.Kind(), r.String())
		})
	}
	<-(chan struct{})(nil)
}
