// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

const (
	defaultAdminRejectReason      = "No reason provided by Admin."
	defaultSuperAdminRejectReason = "No reason provided by Super Admin."
	defaultHigherRejectReason     = "Rejected by higher authority."
)

// Aggregate collapses the higher approvers' decisions into the circular's
// next state. Nothing is final until every approver has answered. After that
// a rejection wins over a meeting request, which wins over approval. The
// returned reason is the feedback of the first rejecting entry
func Aggregate(approvers []Approver) (State, string) {
	var firstReject *Approver
	meeting := false
	for i := range approvers {
		switch approvers[i].Decision {
		case DecisionPending:
			return StatePendingHigherApproval, ""
		case DecisionRejected:
			if firstReject == nil {
				firstReject = &approvers[i]
			}
		case DecisionRequestMeeting:
			meeting = true
		}
	}
	if firstReject != nil {
		if firstReject.Feedback == "" {
			return StateRejected, defaultHigherRejectReason
		}
		return StateRejected, firstReject.Feedback
	}
	if meeting || len(approvers) == 0 {
		return StatePendingHigherApproval, ""
	}
	return StateApproved, ""
}
