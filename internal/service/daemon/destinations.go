package daemon

import (
	"context"
	"net/http"

	"github.com/oshokin/vibration-alarm/internal/config"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/notify"
)

// buildRoutes turns the enabled destinations into dispatcher routes. The MQTT
// destination is returned separately because it has to be disconnected.
func buildRoutes(ctx context.Context, cfg *config.Notify, client *http.Client) ([]notify.Route, *notify.MQTTDestination) {
	var (
		routes []notify.Route
		broker *notify.MQTTDestination
	)

	if cfg.Bot.Enabled {
		routes = append(routes, notify.Route{
			Destination: notify.NewBotDestination(client, cfg.Bot.BaseURL, cfg.Bot.Token, cfg.Bot.ChatID),
			MinInterval: cfg.Bot.MinInterval,
		})
	}

	if cfg.Telemetry.Enabled {
		routes = append(routes, notify.Route{
			Destination: notify.NewTelemetryDestination(
				client, cfg.Telemetry.BaseURL, cfg.Telemetry.Token, cfg.Telemetry.Device, cfg.Telemetry.Variable),
			MinInterval: cfg.Telemetry.MinInterval,
		})
	}

	if cfg.MQTT.Enabled {
		broker = notify.NewMQTTDestination(notify.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})

		routes = append(routes, notify.Route{Destination: broker, MinInterval: cfg.MQTT.MinInterval})
	}

	if len(routes) == 0 {
		logger.Warn(ctx, "No notification destination enabled, messages are only logged")

		routes = append(routes, notify.Route{Destination: notify.NewLogDestination()})
	}

	return routes, broker
}
