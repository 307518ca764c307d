package config

import (
	"fmt"
	"strings"
)

// MissingError lists every required key that resolved to an empty value.
type MissingError struct {
	Service string
	Keys    []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Service, strings.Join(e.Keys, ", "))
}

type requirement struct {
	key   string
	value string
}

func require(service string, reqs ...requirement) error {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Service: service, Keys: missing}
}

func (c CustomVision) Validate() error {
	return require("custom vision prediction",
		requirement{"PredictionEndpoint", c.PredictionEndpoint},
		requirement{"PredictionKey", c.PredictionKey},
		requirement{"ProjectID", c.ProjectID},
		requirement{"PublishedModelName", c.PublishedModelName},
	)
}

func (t Training) Validate() error {
	return require("custom vision training",
		requirement{"TrainingEndpoint", t.Endpoint},
		requirement{"TrainingKey", t.Key},
		requirement{"ProjectID", t.ProjectID},
	)
}

func (v Vision) Validate() error {
	return require("vision",
		requirement{"VISION_ENDPOINT", v.Endpoint},
		requirement{"VISION_KEY", v.Key},
	)
}

func (f Face) Validate() error {
	return require("face",
		requirement{"FACE_ENDPOINT", f.Endpoint},
		requirement{"FACE_KEY", f.Key},
	)
}

func (c Clarifai) Validate() error {
	return require("clarifai", requirement{"CLARIFAI_PAT", c.PAT}, requirement{"CLARIFAI_MODEL_URL", c.ModelURL})
}

func (g Gemini) Validate() error {
	return require("gemini", requirement{"GEMINI_API_KEY", g.APIKey}, requirement{"GEMINI_MODEL", g.Model})
}

func (t Telegram) Validate() error {
	return require("telegram", requirement{"TELEGRAM_BOT_TOKEN", t.BotToken})
}
