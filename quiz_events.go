package lumio

import "strconv"

// Quiz lifecycle recorders. The quiz package reports through caller-supplied
// hooks; wiring these methods into them routes quiz events through the
// client's metrics and audit trail:
//
//	quiz.Hooks{
//		Loaded: client.RecordQuizLoaded,
//		Scored: client.RecordAttemptScored,
//		Failed: client.RecordAttemptFailed,
//	}

// RecordQuizLoaded notes a quiz session reaching the editing state.
func (c *Client) RecordQuizLoaded(quizID string) {
	if c == nil {
		return
	}
	c.metricInc(MetricQuizLoaded)
	c.emitAudit(nil, auditEventQuizLoaded, true, c.currentUserID(), nil, map[string]string{
		"quiz_id": quizID,
	})
}

// RecordAttemptScored notes a scored attempt and, when present, the badge
// that came with it.
func (c *Client) RecordAttemptScored(quizID, attemptID string, score float64, badge *BadgeAward) {
	if c == nil {
		return
	}
	c.metricInc(MetricAttemptScored)
	event := AuditEvent{
		EventType: auditEventAttemptScored,
		UserID:    c.currentUserID(),
		QuizID:    quizID,
		AttemptID: attemptID,
		Success:   true,
		Metadata: map[string]string{
			"score": strconv.FormatFloat(score, 'f', -1, 64),
		},
	}
	if c.audit != nil {
		c.audit.Emit(nil, event)
	}

	if badge == nil {
		return
	}
	c.metricInc(MetricBadgeAwarded)
	if c.audit != nil {
		c.audit.Emit(nil, AuditEvent{
			EventType: auditEventBadgeAwarded,
			UserID:    c.currentUserID(),
			QuizID:    quizID,
			AttemptID: attemptID,
			Success:   true,
			Metadata:  map[string]string{"badge_id": badge.BadgeID},
		})
	}
}

// RecordAttemptFailed notes a failed submission.
func (c *Client) RecordAttemptFailed(quizID string, cause error) {
	if c == nil {
		return
	}
	c.metricInc(MetricAttemptFailed)
	event := AuditEvent{
		EventType: auditEventAttemptFailed,
		UserID:    c.currentUserID(),
		QuizID:    quizID,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if c.audit != nil {
		c.audit.Emit(nil, event)
	}
}
