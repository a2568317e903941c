package config

import (
	"errors"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Notification feature flags.
const (
	FeatureNotifyEnrollmentMail      = "notify.enrollment_mail"            // send enrollment confirmations
	FeatureNotifyEnrollmentUpdate    = "notify.enrollment_update_template" // "Matrícula atualizada" instead of the creation mail
	FeatureNotifyHelpOrderAnswerMail = "notify.help_order_answer_mail"     // send answered help orders
)

var defaultFeatures = []Feature{
	{Name: FeatureNotifyEnrollmentMail, Description: "Mail students when an enrollment is created or updated", RolloutPercent: 100},
	{Name: FeatureNotifyEnrollmentUpdate, Description: "Use the dedicated update template for enrollment changes", RolloutPercent: 100},
	{Name: FeatureNotifyHelpOrderAnswerMail, Description: "Mail students when their help order is answered", RolloutPercent: 100},
}

var (
	ErrFeatureNotFound       = errors.New("feature not found")
	ErrInvalidRolloutPercent = errors.New("rollout percent must be 0-100")
)

// Feature is one notification toggle. Students are bucketed by a hash of
// their id, so a partial rollout keeps the same students in or out.
type Feature struct {
	Name           string
	Description    string
	RolloutPercent int
}

// FeatureContext is what a flag is evaluated against.
type FeatureContext struct {
	StudentID int64
}

// ForStudent builds a FeatureContext for a student.
func ForStudent(id int64) *FeatureContext {
	return &FeatureContext{StudentID: id}
}

// FeatureFlags evaluates the notification toggles. Safe for concurrent use.
type FeatureFlags struct {
	mu        sync.RWMutex
	features  map[string]*Feature
	overrides map[int64]map[string]bool
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:  make(map[string]*Feature, len(defaultFeatures)),
		overrides: make(map[int64]map[string]bool),
	}
	for _, f := range defaultFeatures {
		f := f
		ff.features[f.Name] = &f
	}
	return ff
}

// LoadFeatureFlags applies environment overrides to the defaults:
//
//	FEATURE_NOTIFY_ENROLLMENT_MAIL=false        off for everyone
//	FEATURE_NOTIFY_ENROLLMENT_UPDATE_TEMPLATE=25 on for 25% of students
//	FEATURE_NOTIFY_ENROLLMENT_MAIL_STUDENTS=1,7  forced on for students 1 and 7
//
// The value is a percentage from 0 to 100; true and false are accepted
// as 100 and 0.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	for name, f := range ff.features {
		key := featureEnvKey(name)

		if v := os.Getenv(key); v != "" {
			f.RolloutPercent = parseRollout(v, f.RolloutPercent)
		}

		for _, id := range strings.Split(os.Getenv(key+"_STUDENTS"), ",") {
			if sid, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64); err == nil && sid > 0 {
				ff.SetStudentOverride(sid, name, true)
			}
		}
	}
	return ff
}

// parseRollout reads a percentage, or true/false as 100/0. Integers are
// tried first so "1" means 1%. Anything else keeps current.
func parseRollout(v string, current int) int {
	if p, err := strconv.Atoi(v); err == nil {
		if p < 0 || p > 100 {
			return current
		}
		return p
	}
	if b, err := strconv.ParseBool(v); err == nil {
		if b {
			return 100
		}
		return 0
	}
	return current
}

// "notify.enrollment_mail" -> "FEATURE_NOTIFY_ENROLLMENT_MAIL"
func featureEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether featureName is on for ctx. Without a student a
// feature counts as on unless its rollout is zero.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	var studentID int64
	if ctx != nil {
		studentID = ctx.StudentID
	}

	if enabled, ok := ff.overrides[studentID][featureName]; ok && studentID != 0 {
		return enabled
	}

	f, ok := ff.features[featureName]
	switch {
	case !ok || f.RolloutPercent <= 0:
		return false
	case f.RolloutPercent >= 100 || studentID == 0:
		return true
	default:
		return rolloutBucket(studentID, featureName) < f.RolloutPercent
	}
}

func rolloutBucket(studentID int64, featureName string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(featureName))
	_, _ = h.Write([]byte(strconv.FormatInt(studentID, 10)))
	return int(h.Sum32() % 100)
}

// SetStudentOverride forces a feature on or off for one student.
func (ff *FeatureFlags) SetStudentOverride(studentID int64, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.overrides[studentID] == nil {
		ff.overrides[studentID] = make(map[string]bool)
	}
	ff.overrides[studentID][featureName] = enabled
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	f.RolloutPercent = percent
	return nil
}

// DisableFeature turns a feature off for every student without an override.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}
