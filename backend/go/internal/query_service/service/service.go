package service

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"EnterpriseAgent/backend/go/internal/query_service/store"
	"EnterpriseAgent/backend/go/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const serviceName = "query_service"

var (
	errEmptyQuestion = errors.New("question must not be empty")
	errEmptyQuery    = errors.New("query text must not be empty")
)

// Generator 是生成模型的调用方，见 llm.Generator。
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
	Model() string
}

// Embedder 把文本转换为固定维度的向量，见 embedding.Embedding。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Publisher 在记录提交后发布事件，见 kafka.EventPublisher。
type Publisher interface {
	PublishQueryRecorded(ctx context.Context, event *models.QueryRecordedEvent) error
}

// Options 是 Service 的可选参数。
type Options struct {
	DefaultK       int              // 未指定 k 时的结果数
	MaxK           int              // k 的上限
	Publisher      Publisher        // 为 nil 时不发布事件
	PublishTimeout time.Duration    // 发布事件的超时时间
	Now            func() time.Time // 为 nil 时使用 time.Now
}

// SubmitResult 是一次提问的结果。
type SubmitResult struct {
	ID             uint64 `json:"id"`
	Answer         string `json:"answer"`
	RemainingToday uint   `json:"remaining_today"`
}

// SearchHit 是一条语义检索结果。
type SearchHit struct {
	ID       uint64  `json:"id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Distance float64 `json:"distance"`
}

// Service 协调配额、生成、向量化和落库。
type Service struct {
	store     *store.Store
	generator Generator
	embedder  Embedder
	opts      Options
}

// NewService 创建一个新的 Service 实例。
func NewService(s *store.Store, g Generator, e Embedder, opts Options) *Service {
	if opts.DefaultK <= 0 {
		opts.DefaultK = 5
	}
	if opts.MaxK < opts.DefaultK {
		opts.MaxK = opts.DefaultK
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: s, generator: g, embedder: e, opts: opts}
}

// Submit 处理一个问题: 扣减配额，生成回答并向量化问题，然后把记录和向量一起写入账本。
// 配额一旦扣减就不会退还，生成或向量化失败时用户仍被计费。
func (s *Service) Submit(ctx context.Context, userID uint, question string) (*SubmitResult, error) {
	const op = "service.Submit"
	log := logger.FromContext(ctx, serviceName)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errs.E(errs.KindInvalidArgument, op, errEmptyQuestion)
	}

	now := s.opts.Now().UTC()
	decision, err := s.store.Quota.TryConsume(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		log.WithPayload(map[string]interface{}{"limit": s.store.Quota.Limit()}).Info("每日配额已用完")
		return nil, errs.E(errs.KindQuotaDenied, op, nil)
	}

	// 只对问题向量化，所以两个外部调用可以并行。
	var (
		answer  string
		vector  []float32
		elapsed time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		a, err := s.generator.Generate(gctx, question)
		elapsed = time.Since(start)
		answer = a
		return err
	})
	g.Go(func() error {
		v, err := s.embedder.Embed(gctx, question)
		vector = v
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: string(errs.KindOf(err))}).
			Warn("外部调用失败，本次配额不退还")
		return nil, err
	}

	responseMs := float64(elapsed.Microseconds()) / 1000
	// 配额按请求到达时刻结算，记录时间取写入前的时刻。
	recordedAt := s.opts.Now().UTC()
	rec := &models.QueryRecord{
		UserID:         userID,
		InputText:      question,
		ResponseText:   answer,
		ModelUsed:      s.generator.Model(),
		ResponseTimeMs: &responseMs,
		CreatedAt:      recordedAt,
		Embedding:      vector,
	}
	id, err := s.store.Ledger.Append(ctx, rec)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: string(errs.KindOf(err))}).Error("写入账本失败")
		return nil, err
	}

	s.publish(ctx, rec)
	log.WithPayload(map[string]interface{}{
		"record_id":        id,
		"response_time_ms": responseMs,
		"remaining_today":  decision.Remaining,
	}).Info("问答已记录")

	return &SubmitResult{ID: id, Answer: answer, RemainingToday: decision.Remaining}, nil
}

// publish 发送记录事件。失败只记日志，记录已经提交。
func (s *Service) publish(ctx context.Context, rec *models.QueryRecord) {
	if s.opts.Publisher == nil {
		return
	}
	// 客户端断开不应让已提交记录的事件丢失。
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()

	err := s.opts.Publisher.PublishQueryRecorded(pctx, &models.QueryRecordedEvent{
		RecordID:       rec.ID,
		UserID:         rec.UserID,
		ModelUsed:      rec.ModelUsed,
		ResponseTimeMs: rec.ResponseTimeMs,
		HasEmbedding:   rec.Embedding != nil,
		CreatedAt:      rec.CreatedAt,
	})
	if err != nil {
		logger.FromContext(ctx, serviceName).
			WithPayload(map[string]interface{}{"record_id": rec.ID}).
			WithError(models.ErrorInfo{Message: err.Error(), Type: "publish_error"}).
			Warn("发布记录事件失败")
	}
}

// Search 对 text 向量化并返回最近的 k 条历史问答，按距离升序，距离相同按 ID 升序。
// k<=0 时使用默认值，超过上限时截断。检索不扣配额，也不限定用户。
func (s *Service) Search(ctx context.Context, text string, k int) ([]SearchHit, error) {
	const op = "service.Search"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.E(errs.KindInvalidArgument, op, errEmptyQuery)
	}
	if k <= 0 {
		k = s.opts.DefaultK
	}
	if k > s.opts.MaxK {
		k = s.opts.MaxK
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	neighbors, err := s.store.Index.Nearest(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.RecordID
	}
	records, err := s.store.Ledger.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := records[n.RecordID]
		if !ok {
			// 向量与记录同事务写入，缺失说明数据被外部改动过。
			logger.FromContext(ctx, serviceName).
				WithPayload(map[string]interface{}{"record_id": n.RecordID}).
				Warn("向量没有对应的记录，已跳过")
			continue
		}
		hits = append(hits, SearchHit{ID: rec.ID, Question: rec.InputText, Answer: rec.ResponseText, Distance: n.Distance})
	}
	return hits, nil
}

// History 返回用户的问答记录，最新的在前。limit<=0 表示全部。
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]models.QueryRecord, error) {
	if _, err := s.store.Users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Ledger.ListForUser(ctx, userID, limit)
}

// CreateUser 创建一个新用户。
func (s *Service) CreateUser(ctx context.Context, username string) (*models.User, error) {
	return s.store.Users.CreateUser(ctx, username)
}

// GetUser 按 ID 查询用户。
func (s *Service) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.store.Users.GetUserByID(ctx, userID)
}

// GlobalStats 返回全局统计，“当日”按 UTC 计算。
func (s *Service) GlobalStats(ctx context.Context) (store.GlobalStats, error) {
	return s.store.Analytics.GlobalStats(ctx, s.opts.Now())
}

// MostActiveUser 返回记录数最多的用户 ID，账本为空时返回 nil。
func (s *Service) MostActiveUser(ctx context.Context) (*uint, error) {
	return s.store.Analytics.MostActiveUser(ctx)
}

// UsersAtLimit 返回今天已经用完配额的用户 ID。
func (s *Service) UsersAtLimit(ctx context.Context) ([]uint, error) {
	return s.store.Analytics.UsersAtLimit(ctx, s.store.Quota.Limit(), s.opts.Now())
}

// Dashboard 返回管理面板数据。
func (s *Service) Dashboard(ctx context.Context) (store.Dashboard, error) {
	return s.store.Analytics.Dashboard(ctx, s.store.Quota.Limit(), s.opts.Now())
}

// RemainingToday 返回用户今天还能提交的问题数，不产生任何写入。
func (s *Service) RemainingToday(ctx context.Context, userID uint) (uint, error) {
	u, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	limit := s.store.Quota.Limit()
	if u.LastRequestAt == nil || !sameUTCDay(*u.LastRequestAt, s.opts.Now()) {
		return limit, nil
	}
	if u.DailyRequests >= limit {
		return 0, nil
	}
	return limit - u.DailyRequests, nil
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

