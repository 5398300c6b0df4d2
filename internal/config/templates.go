package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "server":
		return serverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as the given kind.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		_, err := LoadClientConfig(path)
		return err
	case "server":
		_, err := LoadServerConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const clientTemplate = `network = "unix"
address = "/tmp/cryptochan.sock"
handle = 1
token = ""
# timeout = "5s"
connect_timeout = "5s"
connect_attempts = 1
security_mode = "development"

[tls]
enabled = false
mutual = false
ca_file = ""
cert_file = ""
key_file = ""
server_name = ""
`

const serverTemplate = `network = "unix"
address = "/tmp/cryptochan.sock"
token = ""
security_mode = "development"
admin_address = "127.0.0.1:9470"
admin_cors_origins = ["http://localhost:3000"]

[tls]
enabled = false
mutual = false
ca_file = ""
cert_file = ""
key_file = ""
`
