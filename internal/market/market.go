package market

import (
	"time"

	"firestocks/pkg/logger"
)

// session 一个交易所的常规交易时段（本地时间，分钟粒度）
type session struct {
	timezone  string
	fallback  *time.Location // 时区数据库缺失时的固定偏移
	openMins  int            // 距当日零点的分钟数
	closeMins int
}

// 只覆盖平台实际接入的交易所，其余走默认（美股时段）
var sessions = map[string]session{
	"NASDAQ": {"America/New_York", time.FixedZone("EST", -5*60*60), 9*60 + 30, 16 * 60},
	"NYSE":   {"America/New_York", time.FixedZone("EST", -5*60*60), 9*60 + 30, 16 * 60},
	"NSE":    {"Asia/Kolkata", time.FixedZone("IST", 5*60*60+30*60), 9*60 + 15, 15*60 + 30},
	"BSE":    {"Asia/Kolkata", time.FixedZone("IST", 5*60*60+30*60), 9*60 + 15, 15*60 + 30},
	"LSE":    {"Europe/London", time.FixedZone("GMT", 0), 8 * 60, 16*60 + 30},
}

var defaultSession = sessions["NASDAQ"]

// IsOpen 判断给定时刻该交易所是否处于常规交易时段
// 周末闭市；不含节假日表，节假日当作开市由行情侧返回旧价处理
func IsOpen(exchange string, t time.Time) bool {
	s, ok := sessions[exchange]
	if !ok {
		s = defaultSession
	}

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		logger.Warnf("load timezone %s failed: %v, using fixed offset", s.timezone, err)
		loc = s.fallback
	}

	local := t.In(loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	mins := local.Hour()*60 + local.Minute()
	return mins >= s.openMins && mins < s.closeMins
}
