// Package all registers all air link drivers.
package all

import (
	_ "github.com/robotalks/omnilink/pkg/air/mqtt"
	_ "github.com/robotalks/omnilink/pkg/air/websocket"
)
