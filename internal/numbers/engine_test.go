package numbers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.uber.org/mock/gomock"

	"jackbear/internal/numbers/mocks"
	dErrors "jackbear/pkg/domain-errors"
)

func (s *EngineSuite) TestRequest_AcksIntoWaitingAndSchedulesReconcile() {
	now := time.Now().UTC().Truncate(time.Second)
	s.mockTransport.EXPECT().
		Post(gomock.Any(), "/sms/request-number", map[string]string{"service_code": "whatsapp", "country_code": "br"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, out any) error {
			return decodeInto(map[string]any{
				"active_number": map[string]any{
					"id":           "n1",
					"service_code": "whatsapp",
					"country_code": "br",
					"phone_number": "+55 11 91234-5678",
					"status":       "waiting",
					"cost":         1.0,
					"created_at":   now,
					"expires_at":   now.Add(15 * time.Minute),
				},
			}, out)
		})
	s.mockTrigger.EXPECT().ScheduleReconcile()

	n, err := s.engine.Request(context.Background(), "whatsapp", "br")
	s.Require().NoError(err)
	s.Equal(StatusWaiting, n.Status)
	s.Equal("whatsapp", n.ServiceID)
	s.Empty(n.LastCode)

	stored, ok := s.engine.Get("n1")
	s.True(ok)
	s.Equal(n, stored)
	s.Equal(1, s.engine.ActiveCount())
}

func (s *EngineSuite) TestMutationsRecordSpendPredictions() {
	predictor := mocks.NewMockSpendPredictor(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := NewEngine(s.mockTransport,
		WithLogger(logger),
		WithReconcileTrigger(s.mockTrigger),
		WithSpendPredictor(predictor),
	)
	s.Require().NoError(err)

	s.mockTransport.EXPECT().
		Post(gomock.Any(), "/sms/request-number", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, out any) error {
			return decodeInto(map[string]any{
				"active_number": map[string]any{
					"id": "n1", "service_code": "telegram", "status": "waiting", "cost": 2.0,
				},
			}, out)
		})
	s.mockTransport.EXPECT().Post(gomock.Any(), "/sms/cancel/n1", nil, nil).Return(nil)
	s.mockTrigger.EXPECT().ScheduleReconcile().Times(2)

	// The rental hints the balance down, the cancellation hints it back up.
	gomock.InOrder(
		predictor.EXPECT().Predict(-2),
		predictor.EXPECT().Predict(2),
	)

	_, err = engine.Request(context.Background(), "telegram", "")
	s.Require().NoError(err)
	s.Require().NoError(engine.Cancel(context.Background(), "n1"))
}

func (s *EngineSuite) TestRequest_RequiresService() {
	_, err := s.engine.Request(context.Background(), "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *EngineSuite) TestRequest_SoftBalanceCheckFailsFast() {
	credits := mocks.NewMockCreditHint(s.ctrl)
	prices := mocks.NewMockPriceHint(s.ctrl)
	engine, err := NewEngine(s.mockTransport,
		WithCreditHint(credits),
		WithPriceHint(prices),
	)
	s.Require().NoError(err)

	credits.EXPECT().CreditHint().Return(1, true)
	prices.EXPECT().UnitPrice("telegram").Return(2.0, true)

	// No transport expectation: the request never reaches the wire.
	_, err = engine.Request(context.Background(), "telegram", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientCredits))
}

func (s *EngineSuite) TestRequest_UnknownBalancePassesThrough() {
	credits := mocks.NewMockCreditHint(s.ctrl)
	engine, err := NewEngine(s.mockTransport, WithCreditHint(credits), WithReconcileTrigger(s.mockTrigger))
	s.Require().NoError(err)

	credits.EXPECT().CreditHint().Return(0, false)
	s.mockTransport.EXPECT().
		Post(gomock.Any(), "/sms/request-number", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, out any) error {
			return decodeInto(map[string]any{"active_number": map[string]any{"id": "n9", "status": "waiting"}}, out)
		})
	s.mockTrigger.EXPECT().ScheduleReconcile()

	_, err = engine.Request(context.Background(), "whatsapp", "")
	s.NoError(err)
}

func (s *EngineSuite) TestPoll_IsIdempotent() {
	s.seed(s.waitingNumber("n1"))
	payload := map[string]any{"status": "waiting"}
	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/status/n1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			return decodeInto(payload, out)
		}).
		Times(2)

	first, err := s.engine.Poll(context.Background(), "n1")
	s.Require().NoError(err)
	second, err := s.engine.Poll(context.Background(), "n1")
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *EngineSuite) TestPoll_CodeArrivalMovesToReceived() {
	s.seed(s.waitingNumber("n1"))
	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/status/n1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			return decodeInto(map[string]any{"status": "received", "code": "482913"}, out)
		})

	n, err := s.engine.Poll(context.Background(), "n1")
	s.Require().NoError(err)
	s.Equal(StatusReceived, n.Status)
	s.Equal("482913", n.LastCode)
	// Wire fields the poll response omitted are kept from the local snapshot.
	s.Equal("whatsapp", n.ServiceID)
	s.Equal("+55 11 91234-5678", n.PhoneDisplay)
}

func (s *EngineSuite) TestPoll_TerminalAnswersLocallyWithoutNetwork() {
	n := s.waitingNumber("n1")
	n.Status = StatusCancelled
	s.seed(n)

	// No transport expectation: terminal numbers never go back on the wire.
	got, err := s.engine.Poll(context.Background(), "n1")
	s.Require().NoError(err)
	s.Equal(StatusCancelled, got.Status)
}

func (s *EngineSuite) TestPoll_UnknownNumber() {
	_, err := s.engine.Poll(context.Background(), "ghost")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestReactivate_ClearsCodeAndCharges() {
	n := s.waitingNumber("n1")
	n.Status = StatusReceived
	n.LastCode = "482913"
	s.seed(n)

	s.mockTransport.EXPECT().
		Post(gomock.Any(), "/sms/reactivate/n1", nil, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, out any) error {
			return decodeInto(map[string]any{"id": "n1", "status": "waiting", "cost": 1.0}, out)
		})
	s.mockTrigger.EXPECT().ScheduleReconcile()

	got, err := s.engine.Reactivate(context.Background(), "n1")
	s.Require().NoError(err)
	s.Equal(StatusWaiting, got.Status)
	s.Empty(got.LastCode)

	stored, _ := s.engine.Get("n1")
	s.Empty(stored.LastCode)
}

func (s *EngineSuite) TestReactivate_InvalidFromTerminal() {
	n := s.waitingNumber("n1")
	n.Status = StatusExpired
	s.seed(n)

	_, err := s.engine.Reactivate(context.Background(), "n1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *EngineSuite) TestCancel_MarksLocalCancelled() {
	s.seed(s.waitingNumber("n1"))
	s.mockTransport.EXPECT().Post(gomock.Any(), "/sms/cancel/n1", nil, nil).Return(nil)
	s.mockTrigger.EXPECT().ScheduleReconcile()

	s.Require().NoError(s.engine.Cancel(context.Background(), "n1"))
	stored, _ := s.engine.Get("n1")
	s.Equal(StatusCancelled, stored.Status)
	s.Zero(s.engine.ActiveCount())
}

func (s *EngineSuite) TestCancel_OnReceivedFailsWithoutMutation() {
	n := s.waitingNumber("n1")
	n.Status = StatusReceived
	n.LastCode = "482913"
	s.seed(n)

	err := s.engine.Cancel(context.Background(), "n1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored, _ := s.engine.Get("n1")
	s.Equal(StatusReceived, stored.Status)
	s.Equal("482913", stored.LastCode)
}

func (s *EngineSuite) TestCancel_AuthorityFailureLeavesNumberWaiting() {
	s.seed(s.waitingNumber("n1"))
	s.mockTransport.EXPECT().
		Post(gomock.Any(), "/sms/cancel/n1", nil, nil).
		Return(dErrors.New(dErrors.CodeNetwork, ""))

	err := s.engine.Cancel(context.Background(), "n1")
	s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
	stored, _ := s.engine.Get("n1")
	s.Equal(StatusWaiting, stored.Status)
}

func (s *EngineSuite) TestOverlappingOperationsOnSameIDAreRejected() {
	s.seed(s.waitingNumber("n1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/status/n1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			close(entered)
			<-release
			return decodeInto(map[string]any{"status": "waiting"}, out)
		})

	done := make(chan error, 1)
	go func() {
		_, err := s.engine.Poll(context.Background(), "n1")
		done <- err
	}()
	<-entered

	// A second mutating call for the same id is rejected, not queued.
	err := s.engine.Cancel(context.Background(), "n1")
	s.True(dErrors.HasCode(err, dErrors.CodeOperationInProgress))

	close(release)
	s.Require().NoError(<-done)

	// Once the first call settles, the id is free again.
	s.mockTransport.EXPECT().Post(gomock.Any(), "/sms/cancel/n1", nil, nil).Return(nil)
	s.mockTrigger.EXPECT().ScheduleReconcile()
	s.Require().NoError(s.engine.Cancel(context.Background(), "n1"))
}

func (s *EngineSuite) TestClear_DiscardsInFlightResults() {
	s.seed(s.waitingNumber("n1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/status/n1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			close(entered)
			<-release
			return decodeInto(map[string]any{"status": "received", "code": "111111"}, out)
		})

	done := make(chan error, 1)
	go func() {
		_, err := s.engine.Poll(context.Background(), "n1")
		done <- err
	}()
	<-entered

	// The owner is torn down while the poll is in flight.
	s.engine.Clear()
	close(release)
	s.Require().NoError(<-done)

	// The settled result was discarded, not written into the dead store.
	_, ok := s.engine.Get("n1")
	s.False(ok)
	s.Empty(s.engine.List())
}

func (s *EngineSuite) TestClear_DiscardsInFlightResync() {
	entered := make(chan struct{})
	release := make(chan struct{})
	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/active-numbers", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			close(entered)
			<-release
			return decodeInto([]map[string]any{
				{"id": "n1", "service_code": "whatsapp", "status": "waiting"},
			}, out)
		})

	done := make(chan error, 1)
	go func() {
		done <- s.engine.Resync(context.Background())
	}()
	<-entered

	// The owner is torn down while the full read is in flight.
	s.engine.Clear()
	close(release)
	s.Require().NoError(<-done)

	// The stale list was dropped, not swapped into the dead store.
	s.Empty(s.engine.List())
	_, ok := s.engine.Get("n1")
	s.False(ok)
}

func (s *EngineSuite) TestResync_ReplacesCollectionWholesale() {
	stale := s.waitingNumber("gone")
	s.seed(stale)

	s.mockTransport.EXPECT().
		Get(gomock.Any(), "/sms/active-numbers", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out any) error {
			return decodeInto([]map[string]any{
				{"id": "n2", "service_code": "telegram", "status": "waiting"},
				{"id": "n3", "service_code": "whatsapp", "status": "received", "code": "555000"},
			}, out)
		})

	s.Require().NoError(s.engine.Resync(context.Background()))

	list := s.engine.List()
	s.Len(list, 2)
	_, ok := s.engine.Get("gone")
	s.False(ok)

	n3, ok := s.engine.Get("n3")
	s.True(ok)
	s.Equal("555000", n3.LastCode)
}
