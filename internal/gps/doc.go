// Package gps provides the altitude feed: providers for a UART NMEA
// receiver, a gpsd daemon, an MQTT topic and a simulator, plus Poll, which
// turns any provider into a stream of raw altitude samples.
package gps
