package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processor.yml")
	body := "rabbit_cfg:\n  server: amqp://localhost\n  queue: crashes\n  post-exchange: processed\nskip_versions: []\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if c.RabbitQueue() != "crashes" || c.RabbitPostExchange() != "processed" || c.RabbitPostType() != "fanout" {
		t.Fatalf("unexpected rabbit settings")
	}
	if len(c.SkipVersions()) != 0 || c.LogLevel() != "info" {
		t.Fatalf("unexpected defaults")
	}

	path = filepath.Join(dir, "processor.json")
	os.WriteFile(path, []byte(`{"rabbit_cfg": {"server": "amqp://x", "queue": "q"}}`), 0o600)
	c, err = FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !reflect.DeepEqual(c.SkipVersions(), []string{DeveloperVersion}) {
		t.Fatalf("developer builds should be skipped by default, got %v", c.SkipVersions())
	}

	os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0o600)
	if _, err := FromFile(path); err == nil {
		t.Fatalf("expected missing rabbit error")
	}
}

func TestSkipVersionsField(t *testing.T) {
	var c Config = &JsonConfig{Skip: []string{`-dev$`}}
	if !reflect.DeepEqual(c.SkipVersions(), []string{`-dev$`}) {
		t.Fatalf("unexpected skip list %v", c.SkipVersions())
	}
	c = &JsonConfig{Skip: []string{}}
	if len(c.SkipVersions()) != 0 {
		t.Fatalf("an empty skip list must disable skipping")
	}
}
