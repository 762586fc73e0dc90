package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"sasl without user", Config{EnableSASL: true}, true},
		{"sasl scram", Config{EnableSASL: true, SASLMechanism: "SCRAM-SHA-512", Username: "u"}, false},
		{"bad mechanism", Config{EnableSASL: true, SASLMechanism: "GSSAPI", Username: "u"}, true},
		{"bad compression", Config{Compression: "brotli"}, true},
		{"bad acks", Config{RequiredAcks: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Topic != "scribe.sessions" || cfg.RequiredAcks != -1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 127.0.0.1:9092: connection refused"), true},
		{errors.New("Leader Not Available"), true},
		{errors.New("[10] Message Size Too Large: message too large"), false},
		{errors.New("Unknown Topic Or Partition: unknown topic"), false},
		{fmt.Errorf("write: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewTransport(t *testing.T) {
	cfg := Config{EnableSASL: true, Username: "u", Password: "p"}
	cfg.ApplyDefaults()
	tr, err := NewTransport(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if tr.SASL == nil || tr.SASL.Name() != "PLAIN" || tr.ClientID != "scribe" {
		t.Fatalf("transport = %+v", tr)
	}

	bad := Config{EnableTLS: true, TLSCAFile: "/does/not/exist.pem"}
	if _, err := NewTransport(&bad); err == nil {
		t.Fatal("expected CA read error")
	}

	scram := Config{EnableSASL: true, SASLMechanism: "SCRAM-SHA-256", Username: "u", Password: "p"}
	if tr, err := NewTransport(&scram); err != nil || tr.SASL.Name() != "SCRAM-SHA-256" {
		t.Fatalf("scram transport = %+v, %v", tr, err)
	}
}

func TestCodec(t *testing.T) {
	for name, want := range map[string]kafkago.Compression{"zstd": kafkago.Zstd, "gzip": kafkago.Gzip, "none": 0} {
		cfg := Config{Compression: name}
		if got := cfg.Codec(); got != want {
			t.Errorf("Codec(%q) = %v, want %v", name, got, want)
		}
	}
}
