package main

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/config"
	"github.com/feral-file/marketplace-mirror/internal/domain"
	"github.com/feral-file/marketplace-mirror/internal/mocks"
)

const (
	testRPCURL      = "http://localhost:8545"
	testWSURL       = "ws://localhost:8546"
	testMarketplace = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func testEthereumConfig() config.EthereumConfig {
	return config.EthereumConfig{
		RPCURL:             testRPCURL,
		ChainID:            domain.ChainEthereumMainnet,
		MarketplaceAddress: testMarketplace,
	}
}

func TestOpenGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := mocks.NewMockEthClientDialer(ctrl)
	reader := mocks.NewMockEthClient(ctrl)
	ctx := context.Background()

	dialer.EXPECT().Dial(ctx, testRPCURL).Return(reader, nil)
	reader.EXPECT().ChainID(ctx).Return(big.NewInt(1), nil)

	gateway, err := openGateway(ctx, testEthereumConfig(), dialer, adapter.NewClock())
	require.NoError(t, err)
	require.NotNil(t, gateway)

	reader.EXPECT().Close()
	gateway.Close()
}

func TestOpenGateway_SeparateSubscriber(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := mocks.NewMockEthClientDialer(ctrl)
	reader := mocks.NewMockEthClient(ctrl)
	subscriber := mocks.NewMockEthClient(ctrl)
	ctx := context.Background()

	cfg := testEthereumConfig()
	cfg.WebSocketURL = testWSURL

	dialer.EXPECT().Dial(ctx, testRPCURL).Return(reader, nil)
	dialer.EXPECT().Dial(ctx, testWSURL).Return(subscriber, nil)
	reader.EXPECT().ChainID(ctx).Return(big.NewInt(1), nil)

	gateway, err := openGateway(ctx, cfg, dialer, adapter.NewClock())
	require.NoError(t, err)

	reader.EXPECT().Close()
	subscriber.EXPECT().Close()
	gateway.Close()
}

func TestOpenGateway_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(ctx context.Context, dialer *mocks.MockEthClientDialer, reader, subscriber *mocks.MockEthClient) config.EthereumConfig
		wantErr string
	}{
		{
			name: "reader dial failure",
			setup: func(ctx context.Context, dialer *mocks.MockEthClientDialer, _, _ *mocks.MockEthClient) config.EthereumConfig {
				dialer.EXPECT().Dial(ctx, testRPCURL).Return(nil, errors.New("connection refused"))
				return testEthereumConfig()
			},
			wantErr: "connection refused",
		},
		{
			name: "subscriber dial failure closes reader",
			setup: func(ctx context.Context, dialer *mocks.MockEthClientDialer, reader, _ *mocks.MockEthClient) config.EthereumConfig {
				cfg := testEthereumConfig()
				cfg.WebSocketURL = testWSURL
				dialer.EXPECT().Dial(ctx, testRPCURL).Return(reader, nil)
				dialer.EXPECT().Dial(ctx, testWSURL).Return(nil, errors.New("bad handshake"))
				reader.EXPECT().Close()
				return cfg
			},
			wantErr: "bad handshake",
		},
		{
			name: "chain id failure closes clients",
			setup: func(ctx context.Context, dialer *mocks.MockEthClientDialer, reader, _ *mocks.MockEthClient) config.EthereumConfig {
				dialer.EXPECT().Dial(ctx, testRPCURL).Return(reader, nil)
				reader.EXPECT().ChainID(ctx).Return(nil, errors.New("timeout"))
				reader.EXPECT().Close()
				return testEthereumConfig()
			},
			wantErr: "failed to get chain id",
		},
		{
			name: "chain mismatch closes clients",
			setup: func(ctx context.Context, dialer *mocks.MockEthClientDialer, reader, _ *mocks.MockEthClient) config.EthereumConfig {
				dialer.EXPECT().Dial(ctx, testRPCURL).Return(reader, nil)
				reader.EXPECT().ChainID(ctx).Return(big.NewInt(31337), nil)
				reader.EXPECT().Close()
				return testEthereumConfig()
			},
			wantErr: "connected to eip155:31337, configured for eip155:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dialer := mocks.NewMockEthClientDialer(ctrl)
			reader := mocks.NewMockEthClient(ctrl)
			subscriber := mocks.NewMockEthClient(ctrl)
			ctx := context.Background()

			cfg := tt.setup(ctx, dialer, reader, subscriber)

			gateway, err := openGateway(ctx, cfg, dialer, adapter.NewClock())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, gateway)
		})
	}
}
