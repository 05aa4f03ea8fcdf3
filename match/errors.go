package match

import "errors"

// Validation sentinels. Their messages are user-facing and travel verbatim
// inside ACK and JOIN_DENIED payloads, so they stay in the product tongue.
var (
	ErrMatchNotFound     = errors.New("la partida no existe")
	ErrMatchStarted      = errors.New("la partida ya comenzó")
	ErrMatchFull         = errors.New("la partida está llena")
	ErrMatchNotStarted   = errors.New("la partida no está en curso")
	ErrRejoinBlocked     = errors.New("no puedes volver a unirte a esta partida")
	ErrNotInMatch        = errors.New("únete a la partida primero")
	ErrNotAPlayer        = errors.New("solo los jugadores pueden hacer eso")
	ErrNotYourTurn       = errors.New("no es tu turno")
	ErrAlreadyEliminated = errors.New("ya fuiste eliminado")
	ErrOutOfRange        = errors.New("coordenadas fuera del tablero")
	ErrCellAlreadyShot   = errors.New("esa casilla ya fue disparada")
	ErrBadShotType       = errors.New("tipo de disparo inválido")
	ErrNuclearLocked     = errors.New("no puedes usar la bomba nuclear")
	ErrNotCreator        = errors.New("solo el creador puede hacer eso")
	ErrNotEnoughPlayers  = errors.New("se necesitan al menos 2 jugadores")
	ErrNotAllReady       = errors.New("no todos los jugadores están listos")
	ErrNotTeamsMode      = errors.New("la partida no es por equipos")
	ErrBadTeam           = errors.New("equipo inválido")
	ErrTeamsIncomplete   = errors.New("todos los jugadores deben elegir equipo")
	ErrTeamTooSmall      = errors.New("al menos un equipo necesita 2 integrantes")
	ErrBoardGeneration   = errors.New("no se pudo generar el tablero")
	ErrTargetNotPresent  = errors.New("ese jugador no está conectado")
	ErrMatchGone         = errors.New("la partida ya no existe")
	ErrMatchOver         = errors.New("la partida ya terminó")
	ErrInternal          = errors.New("error interno, intenta de nuevo")
)
