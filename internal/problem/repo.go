package problem

import "context"

// ProblemRepository supplies question records.
type ProblemRepository interface {
	ListProblems(ctx context.Context, f Filter) ([]Question, error)
	GetProblem(ctx context.Context, id string) (Question, error) // ErrNotFound when missing
	PutProblems(ctx context.Context, qs ...Question) error       // upsert by id
}

// SubmissionRepository persists graded answers.
type SubmissionRepository interface {
	AppendSubmission(ctx context.Context, s Submission) error
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error)
}

// Repository is what a storage backend provides.
type Repository interface {
	ProblemRepository
	SubmissionRepository
	Close() error
}
