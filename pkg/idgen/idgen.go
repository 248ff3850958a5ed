/*
 * @Description: 公共 ID 生成和解码服务
 * @Author: 晚风
 * @Date: 2025-09-03 14:22:50
 * @LastEditTime: 2025-11-15 20:08:17
 * @LastEditors: 晚风
 */
package idgen

import (
	"fmt"

	"github.com/sqids/sqids-go"
)

// sqidsEncoder 是用于生成和解码短 ID 的 Sqids 编码器实例。
var sqidsEncoder *sqids.Sqids

// DefaultAlphabet 是默认的字母表
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// 不同实体在生成公共 ID 时的类型标识。
// 搜索结果对外暴露的 entityId 是编码后的公共 ID，而不是数据库主键。
const (
	EntityTypeIDUser        uint64 = 1 // 用户实体
	EntityTypeIDPost        uint64 = 2 // 文章实体
	EntityTypeIDSearchIndex uint64 = 3 // 搜索索引实体
)

// InitSqidsEncoder 初始化 Sqids 编码器
func InitSqidsEncoder() error {
	s, err := sqids.New(
		sqids.Options{
			MinLength: 4,
			Alphabet:  DefaultAlphabet,
		},
	)
	if err != nil {
		return fmt.Errorf("初始化 Sqids 编码器失败: %w", err)
	}
	sqidsEncoder = s
	return nil
}

// GeneratePublicID 将数据库主键与实体类型编码为对外公开的短 ID
func GeneratePublicID(dbID uint, entityType uint64) (string, error) {
	if sqidsEncoder == nil {
		return "", fmt.Errorf("Sqids 编码器未初始化")
	}

	id, err := sqidsEncoder.Encode([]uint64{uint64(dbID), entityType})
	if err != nil {
		return "", fmt.Errorf("编码公共ID失败: %w", err)
	}
	return id, nil
}

// DecodePublicID 解码公共 ID
func DecodePublicID(publicID string) (dbID uint, entityType uint64, err error) {
	if sqidsEncoder == nil {
		return 0, 0, fmt.Errorf("Sqids 编码器未初始化")
	}

	numbers := sqidsEncoder.Decode(publicID)
	if len(numbers) != 2 {
		return 0, 0, fmt.Errorf("无法从公共ID解码出预期数量的数字(期望2个，得到%d个)", len(numbers))
	}
	return uint(numbers[0]), numbers[1], nil
}
