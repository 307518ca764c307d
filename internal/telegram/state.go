package telegram

import (
	"fmt"
	"strings"

	"github.com/mvdan/xurls"

	"vision-lab/internal/util"
)

// Mode selects what a chat's images are run through.
type Mode string

const (
	ModeAnalyze    Mode = "analyze"
	ModeClassify   Mode = "classify"
	ModeBackground Mode = "background"
	ModeMatte      Mode = "matte"
)

var allModes = []Mode{ModeAnalyze, ModeClassify, ModeBackground, ModeMatte}

func modeNames() []string {
	out := make([]string, len(allModes))
	for i, m := range allModes {
		out[i] = string(m)
	}
	return out
}

func ParseMode(s string) (Mode, error) {
	for _, m := range allModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q, available: %s", s, strings.Join(modeNames(), " | "))
}

// findImageURLs returns the http(s) links in text that look like images, in order, without duplicates.
func findImageURLs(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, u := range xurls.Relaxed.FindAllString(text, -1) {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = "https://" + u
		}
		if !util.IsImageName(u) || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
