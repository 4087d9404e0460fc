// Package config handles loading and validating AirSafe Core configuration.
//
// Configuration is read from a YAML file with three layers of precedence:
//
//  1. Hardcoded defaults (the public AirSafe broker and firmware topic
//     namespace, so the binary runs with no config file edits)
//  2. YAML file values
//  3. AIRSAFE_* environment variables
//
// The defaults deliberately mirror the AirSafe firmware: broker.emqx.io over
// WebSocket with no credentials, topic namespace "d1ego/airsafe", and the
// stock alert thresholds (PM2.5 25, PM10 50, AQI 75).
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
