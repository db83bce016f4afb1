package recipe

import (
	"time"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
)

const DateLayout = "2006-01-02"

// Zone groups the nodes whose id starts with ID under one crop and growth
// schedule (stage -> first day of that stage).
type Zone struct {
	ID       string            `json:"id" yaml:"id"`
	Crop     string            `json:"crop" yaml:"crop"`
	Schedule map[string]string `json:"schedule" yaml:"schedule"`
}

type Schedule []Zone

type ScheduleSource interface {
	LoadSchedule() (Schedule, error)
}

func (s Schedule) LoadSchedule() (Schedule, error) { return s, nil }

type FileSchedule struct {
	Path string
}

// LoadSchedule reads the schedule and rejects it as a whole when any stage
// date cannot be parsed.
func (f FileSchedule) LoadSchedule() (Schedule, error) {
	var s Schedule
	if err := utilities.DecodeFile(f.Path, &s); err != nil {
		return nil, err
	}
	for _, z := range s {
		for stage, date := range z.Schedule {
			if _, err := time.Parse(DateLayout, date); err != nil {
				return nil, cerrors.ErrMalformedDocument.
					WithMessage("zone %s: stage %s has invalid date %q", z.ID, stage, date).
					WithCause(err)
			}
		}
	}
	return s, nil
}

func (z Zone) CropOrDefault() string {
	if z.Crop == "" {
		return constants.DefaultCrop
	}
	return z.Crop
}

// ResolveStage returns the stage with the latest start date not after now.
// Dates are read in now's location. Without a started stage the default
// stage is returned.
func (z Zone) ResolveStage(now time.Time) (string, error) {
	stage := constants.DefaultStage
	var (
		latest time.Time
		found  bool
	)
	for name, date := range z.Schedule {
		start, err := time.ParseInLocation(DateLayout, date, now.Location())
		if err != nil {
			return "", cerrors.ErrMalformedDocument.
				WithMessage("zone %s: stage %s has invalid date %q", z.ID, name, date).
				WithCause(err)
		}
		if start.After(now) {
			continue
		}
		if !found || start.After(latest) {
			latest, stage, found = start, name, true
		}
	}
	return stage, nil
}

func (z Zone) RecipeKey(now time.Time) (Key, error) {
	stage, err := z.ResolveStage(now)
	if err != nil {
		return Key{}, err
	}
	return Key{Crop: z.CropOrDefault(), Stage: stage}, nil
}
