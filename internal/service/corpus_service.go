package service

import (
	"context"

	"hmo-assistant-be/internal/repository/contract"
)

type ICorpusService interface {
	Stats(ctx context.Context) (*contract.CorpusStats, error)
}

type corpusService struct {
	corpus contract.CorpusRepository
}

func NewCorpusService(corpus contract.CorpusRepository) ICorpusService {
	return &corpusService{corpus: corpus}
}

func (cs *corpusService) Stats(ctx context.Context) (*contract.CorpusStats, error) {
	return cs.corpus.Stats(ctx)
}
