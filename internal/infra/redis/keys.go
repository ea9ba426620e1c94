package redis

import "couplegame-service/internal/domain"

func sessionKey(id string) string {
	return "game:session:" + id
}

func activeKey(creator string, gameType domain.GameType) string {
	return "game:active:" + creator + ":" + string(gameType)
}

func playerActiveKey(playerID string) string {
	return "game:player:" + playerID + ":active"
}

func playerHistoryKey(playerID string) string {
	return "game:player:" + playerID + ":history"
}

func feedChannel(sessionID string) string {
	return "game:feed:" + sessionID
}

func bankKey(gameType domain.GameType) string {
	return "game:bank:" + string(gameType)
}
