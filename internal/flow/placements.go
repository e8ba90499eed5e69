package flow

import (
	"fmt"
	"strings"

	"github.com/formforge/FormForge/internal/models"
	"github.com/formforge/FormForge/internal/steps"
)

// PlacementTypeUpload marks a placement that collects a required upload.
const PlacementTypeUpload = "upload"

// ComputePlacements derives the deterministic placement list for the batch.
// Placements never come from provider output: each outstanding required
// upload that the session has not answered and the batch did not emit as a
// step gets one placement, anchored after the most related emitted step
// when one exists and appended otherwise. Order follows the requiredUploads
// declaration, so the same inputs always produce the same list.
func ComputePlacements(requiredUploads []models.RequiredUpload, answers map[string]any, emitted []models.Step) []models.Placement {
	if len(requiredUploads) == 0 {
		return nil
	}

	answeredKeys := make(map[string]bool, len(answers))
	for id := range answers {
		if key := steps.KeyFromStepID(id); key != "" {
			answeredKeys[key] = true
		}
	}
	emittedKeys := make(map[string]bool, len(emitted))
	for _, step := range emitted {
		emittedKeys[steps.KeyFromStepID(step.ID)] = true
	}

	var placements []models.Placement
	for i, upload := range requiredUploads {
		key := steps.KeyFromStepID(upload.StepID)
		if key == "" || answeredKeys[key] || emittedKeys[key] {
			continue
		}

		id := steps.StepIDFromKey(key)
		if id == "" {
			id = fmt.Sprintf("step-upload-%d", i+1)
		}

		placement := models.Placement{
			ID:            id,
			Type:          PlacementTypeUpload,
			Role:          upload.Role,
			Position:      models.PlacementAfter,
			Deterministic: true,
		}
		if anchor := anchorFor(key, emitted); anchor != "" {
			placement.AnchorStepID = &anchor
		}
		placements = append(placements, placement)
	}
	return placements
}

// anchorFor returns the id of the first emitted step whose key relates to
// the upload key by substring in either direction.
func anchorFor(uploadKey string, emitted []models.Step) string {
	for _, step := range emitted {
		key := steps.KeyFromStepID(step.ID)
		if key == "" {
			continue
		}
		if strings.Contains(key, uploadKey) || strings.Contains(uploadKey, key) {
			return step.ID
		}
	}
	return ""
}
