package kvstore

// Script names the atomic multi-op scripts this system relies on. Every
// caller goes through Store.Eval rather than issuing the constituent
// commands itself, so no in-process mutex for shared state is needed
// even across relay replicas.
type Script string

const (
	// ScriptRateLimit implements the token-bucket refill/consume.
	// KEYS[1] = bucket key. ARGV = {rps, burst, nowMs}.
	// Returns {allowed(bool), remaining(int), retryAfterMs(int)}.
	ScriptRateLimit Script = "rate_limit"

	// ScriptRecordVote implements the at-most-one-per-tick vote write.
	// KEYS = {votesKey, tallyKey, tallyFirstKey}.
	// ARGV = {agentId, action, timestampMs, ttlSeconds}.
	ScriptRecordVote Script = "record_vote"
)

// rateLimitLua is the Lua body for ScriptRateLimit, run via EVAL on a
// real Redis. The in-memory fake (memory.go) implements the identical
// semantics directly in Go rather than embedding a Lua interpreter.
const rateLimitLua = `
local key = KEYS[1]
local rps = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000.0
local refilled = math.min(burst, tokens + elapsed * rps)

local allowed = 0
local retryAfterMs = 0

if refilled >= 1 then
  refilled = refilled - 1
  allowed = 1
else
  retryAfterMs = math.ceil(((1 - refilled) / rps) * 1000)
end

redis.call('HSET', key, 'tokens', refilled, 'ts', now)
redis.call('EXPIRE', key, math.ceil((burst / rps) * 2) + 1)

return {allowed, math.floor(refilled), retryAfterMs}
`

// recordVoteLua is the Lua body for ScriptRecordVote.
const recordVoteLua = `
local votesKey = KEYS[1]
local tallyKey = KEYS[2]
local firstKey = KEYS[3]
local agentId = ARGV[1]
local action = ARGV[2]
local ts = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local prevRaw = redis.call('HGET', votesKey, agentId)
if prevRaw then
  local prevAction, prevTs = prevRaw:match("^(%S+):(%d+)$")
  prevTs = tonumber(prevTs)
  if prevAction == action and prevTs == ts then
    return {1}
  end
  redis.call('ZINCRBY', tallyKey, -1, prevAction)
  local firstTs = tonumber(redis.call('HGET', firstKey, prevAction))
  if firstTs and firstTs == prevTs then
    -- Lazy recompute: scan remaining votes for this action's new earliest ts.
    local all = redis.call('HGETALL', votesKey)
    local newFirst = nil
    for i = 1, #all, 2 do
      if all[i] ~= agentId then
        local a, t = all[i+1]:match("^(%S+):(%d+)$")
        if a == prevAction then
          t = tonumber(t)
          if newFirst == nil or t < newFirst then
            newFirst = t
          end
        end
      end
    end
    if newFirst then
      redis.call('HSET', firstKey, prevAction, newFirst)
    else
      redis.call('HDEL', firstKey, prevAction)
    end
  end
end

redis.call('HSET', votesKey, agentId, action .. ':' .. ts)
redis.call('ZINCRBY', tallyKey, 1, action)

local curFirst = tonumber(redis.call('HGET', firstKey, action))
if curFirst == nil or ts < curFirst then
  redis.call('HSET', firstKey, action, ts)
end

redis.call('EXPIRE', votesKey, ttl)
redis.call('EXPIRE', tallyKey, ttl)
redis.call('EXPIRE', firstKey, ttl)

return {1}
`

func luaBody(s Script) string {
	switch s {
	case ScriptRateLimit:
		return rateLimitLua
	case ScriptRecordVote:
		return recordVoteLua
	default:
		return ""
	}
}
