package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/protocol"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

type ServerSuite struct {
	suite.Suite
	database db.DB
	server   *httptest.Server
	ctx      context.Context

	client  types.Address
	servers []types.Address
}

func TestServerSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupSuite() {
	database, err := db.NewBadgerDbInMemory()
	s.Require().NoError(err)
	s.database = database
	s.ctx = context.Background()

	s.client = types.HexToAddress("0xc11e000000000000000000000000000000000001")
	for i := 1; i <= 3; i++ {
		s.servers = append(s.servers, types.HexToAddress(fmt.Sprintf("0x%040x", i)))
	}

	verifier := protocol.NewVerifier(database, logging.NewLogger("rpc_test"))
	rpcServer := NewServer(ServerConfig{}, verifier, logging.NewLogger("rpc_test"))
	s.server = httptest.NewServer(rpcServer.Router())
}

func (s *ServerSuite) TearDownSuite() {
	s.server.Close()
	s.database.Close()
}

func (s *ServerSuite) TearDownTest() {
	err := s.database.DropAll()
	s.Require().NoError(err, "failed to clear database in TearDownTest")
}

func (s *ServerSuite) call(method string, params any, result any) *rpcError {
	raw, err := json.Marshal(params)
	s.Require().NoError(err)

	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		Params:  raw,
		Id:      json.RawMessage(`1`),
	})
	s.Require().NoError(err)

	resp, err := http.Post(s.server.URL, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))

	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		s.Require().NoError(json.Unmarshal(envelope.Result, result))
	}
	return nil
}

func (s *ServerSuite) createTask() types.TaskId {
	var created CreateTaskResult
	rpcErr := s.call("vouch_createTask", CreateTaskParams{
		Client:     s.client,
		Descriptor: common.Keccak256([]byte("job")),
		Servers:    s.servers,
		Stake:      types.NewValueFromUint64(100),
		Payment:    types.NewValueFromUint64(1000),
	}, &created)
	s.Require().Nil(rpcErr)
	s.Require().NotZero(created.TaskId)
	return created.TaskId
}

func (s *ServerSuite) TestFullLifecycleOverHttp() {
	taskId := s.createTask()

	for _, server := range s.servers {
		nonce := append([]byte("nonce-"), server.Bytes()...)
		rpcErr := s.call("vouch_commitResult", CommitResultParams{
			TaskId:     taskId,
			Server:     server,
			Commitment: protocol.ComputeCommitment([]byte("correct"), nonce, server),
			Stake:      types.NewValueFromUint64(100),
		}, nil)
		s.Require().Nil(rpcErr)

		rpcErr = s.call("vouch_revealResult", RevealResultParams{
			TaskId: taskId,
			Server: server,
			Result: []byte("correct"),
			Nonce:  nonce,
		}, nil)
		s.Require().Nil(rpcErr)
	}

	var resolved ResolveTaskResult
	rpcErr := s.call("vouch_resolveTask", ResolveTaskParams{TaskId: taskId, Caller: s.client}, &resolved)
	s.Require().Nil(rpcErr)
	s.True(resolved.MajorityReached)
	s.EqualValues(3, resolved.MajorityCount)

	var task TaskView
	rpcErr = s.call("vouch_getTask", GetTaskParams{TaskId: taskId}, &task)
	s.Require().Nil(rpcErr)
	s.True(task.Completed)
	s.Equal(s.client, task.Client)

	var balance GetBalanceResult
	rpcErr = s.call("vouch_getBalance", GetBalanceParams{Address: s.servers[0]}, &balance)
	s.Require().Nil(rpcErr)
	s.True(balance.Balance.Eq(types.NewValueFromUint64(100 + 1000/3)))

	var events []types.Event
	rpcErr = s.call("vouch_getEvents", GetEventsParams{TaskId: taskId}, &events)
	s.Require().Nil(rpcErr)
	// 1 created + 3 committed + 3 revealed + 1 resolved + 3 rewards.
	s.Len(events, 11)
}

func (s *ServerSuite) TestProtocolErrorMapping() {
	taskId := s.createTask()

	rpcErr := s.call("vouch_commitResult", CommitResultParams{
		TaskId:     taskId,
		Server:     s.servers[0],
		Commitment: common.Keccak256([]byte("c")),
		Stake:      types.NewValueFromUint64(42), // wrong deposit
	}, nil)
	s.Require().NotNil(rpcErr)
	s.Equal(codeProtocolBase-int(types.ErrorInvalidDeposit), rpcErr.Code)
	s.Equal(types.ErrorInvalidDeposit.String(), rpcErr.Data)
}

func (s *ServerSuite) TestMissingTaskMapsToProtocolError() {
	rpcErr := s.call("vouch_getTask", GetTaskParams{TaskId: 999}, nil)
	s.Require().NotNil(rpcErr)
	s.Equal(codeProtocolBase-int(types.ErrorTaskNotActive), rpcErr.Code)
	s.Equal(types.ErrorTaskNotActive.String(), rpcErr.Data)

	rpcErr = s.call("vouch_getEvents", GetEventsParams{TaskId: 999}, nil)
	s.Require().NotNil(rpcErr)
	s.Equal(codeProtocolBase-int(types.ErrorTaskNotActive), rpcErr.Code)
}

func (s *ServerSuite) TestMethodNotFound() {
	rpcErr := s.call("vouch_unknown", struct{}{}, nil)
	s.Require().NotNil(rpcErr)
	s.Equal(codeMethodNotFound, rpcErr.Code)
}

func (s *ServerSuite) TestInvalidJson() {
	resp, err := http.Post(s.server.URL, "application/json", bytes.NewReader([]byte("{not json")))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var envelope struct {
		Error *rpcError `json:"error"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.Require().NotNil(envelope.Error)
	s.Equal(codeParseError, envelope.Error.Code)
}
