package es

import (
	"context"
	"errors"
	log "log/slog"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/versiontype"
	"github.com/goccy/go-json"
)

// MaxSearchDepth 深分页上限
const MaxSearchDepth = 400

// ErrSearchDisabled 未启用 ES 时调用方应回退到 SQL 查询
var ErrSearchDisabled = errors.New("search index disabled")

type CharacterRepo interface {
	IndexCharacter(ctx context.Context, character *CharacterES) error
	DeleteCharacter(ctx context.Context, id uint64) error
	SearchCharacters(ctx context.Context, query string, from, size int) ([]*CharacterES, error)
}

type CharacterRepoImpl struct {
	client *elasticsearch.TypedClient
	index  string
}

func NewCharacterRepo(client *elasticsearch.TypedClient, index string) CharacterRepo {
	return &CharacterRepoImpl{client: client, index: index}
}

// IndexCharacter 以 updated_at 作为外部版本号, 旧版本直接跳过
func (s *CharacterRepoImpl) IndexCharacter(ctx context.Context, character *CharacterES) error {
	docID := strconv.FormatUint(character.ID, 10)
	version := character.UpdatedAt.UnixMilli()

	_, err := s.client.Index(s.index).
		Id(docID).
		Document(character).
		Version(strconv.FormatInt(version, 10)).
		VersionType(versiontype.External).
		Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == ConflictCode {
			log.WarnContext(ctx, "Version conflict detected, skipping old data", "character_id", character.ID, "version", version)
			return nil
		}
		return err
	}
	return nil
}

func (s *CharacterRepoImpl) DeleteCharacter(ctx context.Context, id uint64) error {
	docID := strconv.FormatUint(id, 10)
	_, err := s.client.Delete(s.index, docID).Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == NotFoundCode {
			log.WarnContext(ctx, "Character already deleted or not found in ES", "id", id)
			return nil
		}
		return err
	}
	return nil
}

// SearchCharacters 只搜索已审核角色
func (s *CharacterRepoImpl) SearchCharacters(ctx context.Context, query string, from, size int) ([]*CharacterES, error) {
	if from >= MaxSearchDepth {
		return []*CharacterES{}, nil
	}

	resp, err := s.client.Search().
		Index(s.index).
		From(from).
		Size(size).
		Query(&types.Query{
			Bool: &types.BoolQuery{
				Must: []types.Query{{
					MultiMatch: &types.MultiMatchQuery{
						Query:  query,
						Fields: []string{"name^3", "description", "personality"},
					},
				}},
				Filter: []types.Query{{
					Term: map[string]types.TermQuery{
						"is_approved": {Value: true},
					},
				}},
			},
		}).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*CharacterES, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var doc CharacterES
		if err = json.Unmarshal(hit.Source_, &doc); err != nil {
			continue
		}
		results = append(results, &doc)
	}
	return results, nil
}

type noopCharacterRepo struct{}

// NewNoopCharacterRepo 未启用 ES 时使用
func NewNoopCharacterRepo() CharacterRepo {
	return noopCharacterRepo{}
}

func (noopCharacterRepo) IndexCharacter(context.Context, *CharacterES) error { return nil }

func (noopCharacterRepo) DeleteCharacter(context.Context, uint64) error { return nil }

func (noopCharacterRepo) SearchCharacters(context.Context, string, int, int) ([]*CharacterES, error) {
	return nil, ErrSearchDisabled
}
