package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Fragments() FragmentRepositoryInterface
	CourseFiles() CourseFileRepositoryInterface
	EmbeddingJobs() EmbeddingJobRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
