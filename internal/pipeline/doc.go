// Package pipeline implements the clinical note processing engine: a fixed
// five-phase sequence (documentation, coding, compliance, prior auth,
// quality assurance) executed strictly in order, with a declarative
// fatal/non-fatal failure policy and a conditional prior-auth branch.
//
// The package owns orchestration only. The work of each phase is delegated
// to a collaborator implementing the agent.Agent contract; everything a
// host needs to observe is exposed through WorkflowState and its Summary.
package pipeline
