package forecast

// Tuning collects every heuristic constant used by the forecast pipeline.
// Values are policy, not statistics. Configuration decodes over
// DefaultTuning, so only the keys present in a file change.
type Tuning struct {
	// Seasonal
	SeasonalElevatedFactor float64 `json:"seasonalElevatedFactor" yaml:"seasonalElevatedFactor"`
	SeasonalReducedFactor  float64 `json:"seasonalReducedFactor" yaml:"seasonalReducedFactor"`
	SeasonalMaxMultiplier  float64 `json:"seasonalMaxMultiplier" yaml:"seasonalMaxMultiplier"`
	SeasonalMinSpanDays    int     `json:"seasonalMinSpanDays" yaml:"seasonalMinSpanDays"`
	SeasonalMinClaims      int     `json:"seasonalMinClaims" yaml:"seasonalMinClaims"`

	// Trend
	TrendRecentYears        int     `json:"trendRecentYears" yaml:"trendRecentYears"`
	TrendMinYears           int     `json:"trendMinYears" yaml:"trendMinYears"`
	TrendDeadbandPct        float64 `json:"trendDeadbandPct" yaml:"trendDeadbandPct"`
	TrendHighStrength       float64 `json:"trendHighStrength" yaml:"trendHighStrength"`
	TrendModerateStrength   float64 `json:"trendModerateStrength" yaml:"trendModerateStrength"`
	MinTrendStrength        float64 `json:"minTrendStrength" yaml:"minTrendStrength"`
	TrendStepPct            float64 `json:"trendStepPct" yaml:"trendStepPct"`
	StrongTrendPct          float64 `json:"strongTrendPct" yaml:"strongTrendPct"`
	ProductRiskMultiplier   float64 `json:"productRiskMultiplier" yaml:"productRiskMultiplier"`
	ActivityIncreaseRatio   float64 `json:"activityIncreaseRatio" yaml:"activityIncreaseRatio"`
	DevelopmentThresholdPct float64 `json:"developmentThresholdPct" yaml:"developmentThresholdPct"`

	// Time since last claim
	OverdueFactor         float64 `json:"overdueFactor" yaml:"overdueFactor"`
	ApproachingFactor     float64 `json:"approachingFactor" yaml:"approachingFactor"`
	OverdueMultiplier     float64 `json:"overdueMultiplier" yaml:"overdueMultiplier"`
	ApproachingMultiplier float64 `json:"approachingMultiplier" yaml:"approachingMultiplier"`

	// Confidence
	MinClaimsForPrediction int     `json:"minClaimsForPrediction" yaml:"minClaimsForPrediction"`
	MinIntervalsForGrade   int     `json:"minIntervalsForGrade" yaml:"minIntervalsForGrade"`
	LargeDatasetIntervals  int     `json:"largeDatasetIntervals" yaml:"largeDatasetIntervals"`
	VolatileStability      float64 `json:"volatileStability" yaml:"volatileStability"`
	VeryVolatileStability  float64 `json:"veryVolatileStability" yaml:"veryVolatileStability"`
	SteadyStability        float64 `json:"steadyStability" yaml:"steadyStability"`
	AdvancedMinYears       int     `json:"advancedMinYears" yaml:"advancedMinYears"`

	// Product premium adjustments (percent)
	AdjustLow          float64 `json:"adjustLow" yaml:"adjustLow"`
	AdjustModerate     float64 `json:"adjustModerate" yaml:"adjustModerate"`
	AdjustModerateHigh float64 `json:"adjustModerateHigh" yaml:"adjustModerateHigh"`
	AdjustHigh         float64 `json:"adjustHigh" yaml:"adjustHigh"`
	AdjustImproving    float64 `json:"adjustImproving" yaml:"adjustImproving"`
	AdjustWorsening    float64 `json:"adjustWorsening" yaml:"adjustWorsening"`
	AdjustMin          float64 `json:"adjustMin" yaml:"adjustMin"`
	AdjustMax          float64 `json:"adjustMax" yaml:"adjustMax"`

	// Scenarios
	ScenarioWindowYears      int     `json:"scenarioWindowYears" yaml:"scenarioWindowYears"`
	TrendContributionCap     float64 `json:"trendContributionCap" yaml:"trendContributionCap"`
	HighRiskShareWeight      float64 `json:"highRiskShareWeight" yaml:"highRiskShareWeight"`
	HighRiskShareCap         float64 `json:"highRiskShareCap" yaml:"highRiskShareCap"`
	StableCostThreshold      float64 `json:"stableCostThreshold" yaml:"stableCostThreshold"`
	VolatileCostThreshold    float64 `json:"volatileCostThreshold" yaml:"volatileCostThreshold"`
	VolatilityWeight         float64 `json:"volatilityWeight" yaml:"volatilityWeight"`
	BaseConfidence           float64 `json:"baseConfidence" yaml:"baseConfidence"`
	MinConfidence            float64 `json:"minConfidence" yaml:"minConfidence"`
	MaxConfidence            float64 `json:"maxConfidence" yaml:"maxConfidence"`
	WeakTrendPenalty         float64 `json:"weakTrendPenalty" yaml:"weakTrendPenalty"`
	HighRiskSharePenaltyAt   float64 `json:"highRiskSharePenaltyAt" yaml:"highRiskSharePenaltyAt"`
	HighRiskSharePenalty     float64 `json:"highRiskSharePenalty" yaml:"highRiskSharePenalty"`
	FewYears                 int     `json:"fewYears" yaml:"fewYears"`
	FewYearsPenalty          float64 `json:"fewYearsPenalty" yaml:"fewYearsPenalty"`
	VolatileCostPenalty      float64 `json:"volatileCostPenalty" yaml:"volatileCostPenalty"`
	HighRiskReduction        float64 `json:"highRiskReduction" yaml:"highRiskReduction"`
	ElevatedRiskReduction    float64 `json:"elevatedRiskReduction" yaml:"elevatedRiskReduction"`
	RiskManagementAllowance  float64 `json:"riskManagementAllowance" yaml:"riskManagementAllowance"`
	FavorableAllowance       float64 `json:"favorableAllowance" yaml:"favorableAllowance"`
	MaxImprovement           float64 `json:"maxImprovement" yaml:"maxImprovement"`
	UnstableShareWeight      float64 `json:"unstableShareWeight" yaml:"unstableShareWeight"`
	TrendRiskWeight          float64 `json:"trendRiskWeight" yaml:"trendRiskWeight"`
	VolatilityPenalty        float64 `json:"volatilityPenalty" yaml:"volatilityPenalty"`
	MildVolatilityPenalty    float64 `json:"mildVolatilityPenalty" yaml:"mildVolatilityPenalty"`
	ExternalRiskBuffer       float64 `json:"externalRiskBuffer" yaml:"externalRiskBuffer"`
	MaxRiskIncrease          float64 `json:"maxRiskIncrease" yaml:"maxRiskIncrease"`
	OptimisticProbability    int     `json:"optimisticProbability" yaml:"optimisticProbability"`
	RealisticProbability     int     `json:"realisticProbability" yaml:"realisticProbability"`
	PessimisticProbability   int     `json:"pessimisticProbability" yaml:"pessimisticProbability"`
	ProbabilityShift         float64 `json:"probabilityShift" yaml:"probabilityShift"`
	VolatileProbabilityShift int     `json:"volatileProbabilityShift" yaml:"volatileProbabilityShift"`
	MinProbability           int     `json:"minProbability" yaml:"minProbability"`
	MaxProbability           int     `json:"maxProbability" yaml:"maxProbability"`

	// Risk score weights (points) and proximity bands (days)
	NearDays              int     `json:"nearDays" yaml:"nearDays"`
	SoonDays              int     `json:"soonDays" yaml:"soonDays"`
	LaterDays             int     `json:"laterDays" yaml:"laterDays"`
	ScoreWithin30Days     int     `json:"scoreWithin30Days" yaml:"scoreWithin30Days"`
	ScoreWithin90Days     int     `json:"scoreWithin90Days" yaml:"scoreWithin90Days"`
	ScoreWithin180Days    int     `json:"scoreWithin180Days" yaml:"scoreWithin180Days"`
	ScoreBeyond180Days    int     `json:"scoreBeyond180Days" yaml:"scoreBeyond180Days"`
	ScoreHighConfidence   int     `json:"scoreHighConfidence" yaml:"scoreHighConfidence"`
	ScorePerRiskyProduct  int     `json:"scorePerRiskyProduct" yaml:"scorePerRiskyProduct"`
	ScoreHeavyTrend       int     `json:"scoreHeavyTrend" yaml:"scoreHeavyTrend"`
	ScoreLightTrend       int     `json:"scoreLightTrend" yaml:"scoreLightTrend"`
	HeavyTrendPct         float64 `json:"heavyTrendPct" yaml:"heavyTrendPct"`
	LightTrendPct         float64 `json:"lightTrendPct" yaml:"lightTrendPct"`
	ScoreLowStability     int     `json:"scoreLowStability" yaml:"scoreLowStability"`
	ScorePerRisingProduct int     `json:"scorePerRisingProduct" yaml:"scorePerRisingProduct"`
}

// DefaultTuning returns the standard policy constants.
func DefaultTuning() Tuning {
	return Tuning{
		SeasonalElevatedFactor: 1.2,
		SeasonalReducedFactor:  0.8,
		SeasonalMaxMultiplier:  1.5,
		SeasonalMinSpanDays:    365,
		SeasonalMinClaims:      6,

		TrendRecentYears:        2,
		TrendMinYears:           3,
		TrendDeadbandPct:        5,
		TrendHighStrength:       0.7,
		TrendModerateStrength:   0.4,
		MinTrendStrength:        0.3,
		TrendStepPct:            15,
		StrongTrendPct:          20,
		ProductRiskMultiplier:   0.8,
		ActivityIncreaseRatio:   1.2,
		DevelopmentThresholdPct: 20,

		OverdueFactor:         1.5,
		ApproachingFactor:     1.2,
		OverdueMultiplier:     0.7,
		ApproachingMultiplier: 0.85,

		MinClaimsForPrediction: 3,
		MinIntervalsForGrade:   5,
		LargeDatasetIntervals:  100,
		VolatileStability:      1.0,
		VeryVolatileStability:  1.5,
		SteadyStability:        0.5,
		AdvancedMinYears:       3,

		AdjustLow:          -5,
		AdjustModerate:     0,
		AdjustModerateHigh: 10,
		AdjustHigh:         20,
		AdjustImproving:    -5,
		AdjustWorsening:    10,
		AdjustMin:          -10,
		AdjustMax:          30,

		ScenarioWindowYears:      5,
		TrendContributionCap:     0.20,
		HighRiskShareWeight:      0.25,
		HighRiskShareCap:         0.15,
		StableCostThreshold:      0.7,
		VolatileCostThreshold:    0.5,
		VolatilityWeight:         0.10,
		BaseConfidence:           0.8,
		MinConfidence:            0.3,
		MaxConfidence:            0.95,
		WeakTrendPenalty:         0.10,
		HighRiskSharePenaltyAt:   0.3,
		HighRiskSharePenalty:     0.10,
		FewYears:                 3,
		FewYearsPenalty:          0.15,
		VolatileCostPenalty:      0.10,
		HighRiskReduction:        0.05,
		ElevatedRiskReduction:    0.025,
		RiskManagementAllowance:  0.05,
		FavorableAllowance:       0.03,
		MaxImprovement:           0.30,
		UnstableShareWeight:      0.30,
		TrendRiskWeight:          0.5,
		VolatilityPenalty:        0.15,
		MildVolatilityPenalty:    0.08,
		ExternalRiskBuffer:       0.05,
		MaxRiskIncrease:          0.60,
		OptimisticProbability:    20,
		RealisticProbability:     60,
		PessimisticProbability:   20,
		ProbabilityShift:         10,
		VolatileProbabilityShift: 5,
		MinProbability:           15,
		MaxProbability:           70,

		NearDays:              30,
		SoonDays:              90,
		LaterDays:             180,
		ScoreWithin30Days:     30,
		ScoreWithin90Days:     20,
		ScoreWithin180Days:    10,
		ScoreBeyond180Days:    5,
		ScoreHighConfidence:   5,
		ScorePerRiskyProduct:  10,
		ScoreHeavyTrend:       20,
		ScoreLightTrend:       10,
		HeavyTrendPct:         15,
		LightTrendPct:         5,
		ScoreLowStability:     10,
		ScorePerRisingProduct: 5,
	}
}
