package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/augmentkit/util"
	"github.com/kbukum/augmentkit/version"
)

// maxTransformParams caps how many numbered transform parameters an event
// carries; the analytics backend allows 25 parameters per event in total.
const maxTransformParams = 10

// Event is one pipeline composition report.
type Event struct {
	Type         string   `json:"event_type"`
	Timestamp    string   `json:"timestamp"`
	SessionID    string   `json:"session_id"`
	PipelineHash string   `json:"pipeline_hash"`
	Version      string   `json:"version"`
	GoVersion    string   `json:"go_version"`
	OS           string   `json:"os"`
	Arch         string   `json:"arch"`
	CPUCount     int      `json:"cpu_count"`
	Environment  string   `json:"environment"`
	Transforms   []string `json:"transforms"`
	Targets      string   `json:"targets"`
}

// PipelineInfo is what a pipeline reports about itself at construction.
// Pipeline names never leave the process; the report carries only the
// transform shape and supported target kinds.
type PipelineInfo struct {
	// Transforms lists leaf transform names in tree order.
	Transforms []string
	// Targets lists the role kinds the pipeline supports.
	Targets []string
}

func newEvent(info PipelineInfo) Event {
	return Event{
		Type:         "pipeline_init",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		SessionID:    uuid.NewString(),
		PipelineHash: PipelineHash(info.Transforms),
		Version:      version.Resolve().Version,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		CPUCount:     runtime.NumCPU(),
		Environment:  DetectEnvironment(),
		Transforms:   info.Transforms,
		Targets:      targetsLabel(info.Targets),
	}
}

// PipelineHash fingerprints a pipeline shape for deduplication: the SHA-256
// of its sorted transform names.
func PipelineHash(transforms []string) string {
	names := make([]string, len(transforms))
	copy(names, transforms)
	sort.Strings(names)
	data, _ := json.Marshal(names)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// targetsLabel folds the supported geometry kinds into one label:
// none, bboxes, keypoints, or bboxes_keypoints.
func targetsLabel(kinds []string) string {
	var boxes, keypoints bool
	for _, k := range kinds {
		switch k {
		case "bboxes":
			boxes = true
		case "keypoints":
			keypoints = true
		}
	}
	switch {
	case boxes && keypoints:
		return "bboxes_keypoints"
	case boxes:
		return "bboxes"
	case keypoints:
		return "keypoints"
	default:
		return "none"
	}
}

// Params flattens the event into analytics parameters.
func (e Event) Params() map[string]any {
	hash := e.PipelineHash
	if len(hash) > 32 {
		hash = hash[:32]
	}
	params := map[string]any{
		"pipeline_hash":  hash,
		"version":        e.Version,
		"go_version":     e.GoVersion,
		"os":             e.OS,
		"arch":           e.Arch,
		"cpu_count":      e.CPUCount,
		"environment":    e.Environment,
		"targets":        e.Targets,
		"num_transforms": len(e.Transforms),
	}

	unique := util.Unique(e.Transforms)
	sort.Strings(unique)
	if len(unique) > 0 {
		// Parameter values are capped at 100 characters by the backend.
		list := strings.Join(unique, ",")
		if len(list) > 100 {
			list = list[:97] + "..."
		}
		params["transform_types"] = list
	}

	for i, name := range e.Transforms {
		if i >= maxTransformParams {
			break
		}
		params["transform_"+strconv.Itoa(i+1)] = name
	}

	return params
}
