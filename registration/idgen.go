package registration

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateID produces an id of the shape "{prefix}-{base36(now_ms)}-{6
// random base36 chars}". Callers that hit an insertion
// conflict should call GenerateID again rather than reusing the result.
func GenerateID(prefix string) string {
	millis := time.Now().UnixMilli()
	return prefix + "-" + strconv.FormatInt(millis, 36) + "-" + randomBase36(6)
}

// DeploymentID generates a deployment id: "deploy-{agent_id}-{base36-time}-{6-random}".
func DeploymentID(agentID string) string {
	return GenerateID("deploy-" + agentID)
}

// RollbackID generates a rollback id: "rollback-{agent_id}-{base36-time}-{6-random}".
func RollbackID(agentID string) string {
	return GenerateID("rollback-" + agentID)
}

// JobID generates a job id: "job-{base36-time}-{6-random}".
func JobID() string {
	return GenerateID("job")
}

// TaskID generates a task id for the index'th task decomposed from job
// jobID: "task-{job_id}-{index}".
func TaskID(jobID string, index int) string {
	return "task-" + jobID + "-" + strconv.Itoa(index)
}

// randomBase36 returns n cryptographically-random base36 characters.
func randomBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is effectively unrecoverable; fall back to a
			// fixed character rather than panicking mid-registration.
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(base36Alphabet[idx.Int64()])
	}
	return sb.String()
}
