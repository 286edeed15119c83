// Package voice turns spoken requests into structured deployment commands.
package voice

import (
	"strconv"
	"strings"

	"github.com/voxdeploy/voxdeploy/internal/intent"
)

// Resource defaults applied when the utterance leaves a field unspecified.
const (
	defaultImage   = "nginx"
	defaultCPU     = 0.1
	defaultMemory  = "512Mi"
	defaultStorage = "512Mi"
)

var defaultPorts = []string{"80"}

var knownImages = map[string]bool{
	"nginx":  true,
	"ubuntu": true,
	"python": true,
}

// Parse extracts a deployment command from a transcript. Unknown words
// are ignored; missing resource fields fall back to defaults.
func Parse(text string) intent.Command {
	cmd := intent.Command{
		Image:   defaultImage,
		CPU:     defaultCPU,
		Memory:  defaultMemory,
		Storage: defaultStorage,
		Ports:   append([]string(nil), defaultPorts...),
	}

	tokens := strings.Fields(strings.ToLower(text))

	for i, token := range tokens {
		switch token {
		case "deploy", "start", "create":
			cmd.Action = intent.ActionDeploy
		case "status", "check", "get":
			cmd.Action = intent.ActionStatus
		case "stop", "terminate", "delete":
			cmd.Action = intent.ActionTerminate
		case "deployment":
			cmd.Target = intent.TargetDeployment
		}

		if i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]

		switch token {
		case "id", "number":
			if isAlphanumeric(next) {
				cmd.ID = next
			}
		case "app", "application", "image":
			if knownImages[next] {
				cmd.Image = next
			}
		case "cpu", "processor":
			if v, err := strconv.ParseFloat(next, 64); err == nil {
				cmd.CPU = v
			}
		case "memory", "ram":
			if size, ok := normalizeSize(next); ok {
				cmd.Memory = size
			}
		case "storage", "disk":
			if size, ok := normalizeSize(next); ok {
				cmd.Storage = size
			}
		case "port", "ports":
			if isDigits(next) {
				cmd.Ports = []string{next}
			}
		}
	}

	return cmd
}

// normalizeSize canonicalizes a spoken size token into the unit form the
// manifest expects. Bare numbers are taken as mebibytes.
func normalizeSize(token string) (string, bool) {
	if isDigits(token) {
		return token + "Mi", true
	}
	for suffix, unit := range map[string]string{"mi": "Mi", "gi": "Gi", "mb": "Mi", "gb": "Gi"} {
		if strings.HasSuffix(token, suffix) {
			amount := strings.TrimSuffix(token, suffix)
			if isDigits(amount) {
				return amount + unit, true
			}
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !alpha && !digit {
			return false
		}
	}
	return true
}
