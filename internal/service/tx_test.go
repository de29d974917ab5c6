package service

import "context"

type testTxRepos struct {
	fragments     FragmentRepositoryInterface
	courseFiles   CourseFileRepositoryInterface
	embeddingJobs EmbeddingJobRepositoryInterface
}

func (t *testTxRepos) Fragments() FragmentRepositoryInterface {
	return t.fragments
}

func (t *testTxRepos) CourseFiles() CourseFileRepositoryInterface {
	return t.courseFiles
}

func (t *testTxRepos) EmbeddingJobs() EmbeddingJobRepositoryInterface {
	return t.embeddingJobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
