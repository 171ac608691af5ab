package util

import (
	"errors"

	"eduverse-backend/config"

	"github.com/dgrijalva/jwt-go"
)

// 令牌由外部用户服务签发，这里只做校验，不生成。

// ValidateToken 验证令牌并返回用户ID和角色
func ValidateToken(tokenString string) (int, string, error) {
	if tokenString == "" {
		return 0, "", errors.New("令牌为空")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return 0, "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(float64)
		if !ok {
			return 0, "", errors.New("无效的用户ID")
		}
		role, _ := claims["role"].(string)
		return int(userID), role, nil
	}

	return 0, "", errors.New("无效的令牌")
}
